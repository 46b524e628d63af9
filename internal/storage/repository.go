package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finances/internal/core"

	_ "modernc.org/sqlite"
)

// maxInParams keeps IN (...) lookups under SQLite's bound-parameter limit.
const maxInParams = 500

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN builds the modernc.org/sqlite connection string used by the repository and migrations.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// GetCategoryByTitle returns core.ErrNotFound when no category has that exact title.
func (r *SQLiteRepository) GetCategoryByTitle(ctx context.Context, title string) (core.Category, error) {
	row, err := r.queries.GetCategoryByTitle(ctx, title)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category by title: %w", err)
	}
	return toCoreCategory(row)
}

// GetCategoriesByTitles returns the categories matching any of titles, in no particular order.
func (r *SQLiteRepository) GetCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error) {
	var out []core.Category
	for start := 0; start < len(titles); start += maxInParams {
		end := min(start+maxInParams, len(titles))
		rows, err := r.queries.GetCategoriesByTitles(ctx, titles[start:end])
		if err != nil {
			return nil, fmt.Errorf("get categories by titles: %w", err)
		}
		for _, row := range rows {
			c, err := toCoreCategory(row)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		c, err := toCoreCategory(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// CreateCategory returns core.ErrCategoryExists when the title is already taken.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	inserted, err := r.queries.InsertCategory(ctx, fromCoreCategory(c))
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	if !inserted {
		return core.ErrCategoryExists
	}

	slog.InfoContext(ctx, "Category saved to SQLite", "id", c.ID, "title", c.Title)
	return nil
}

// CreateCategories inserts every category in one database transaction and returns
// the ones actually written; titles that already existed are skipped.
func (r *SQLiteRepository) CreateCategories(ctx context.Context, categories []core.Category) ([]core.Category, error) {
	if len(categories) == 0 {
		return nil, nil
	}

	var created []core.Category
	err := r.inTx(ctx, func(q *Queries) error {
		for _, c := range categories {
			inserted, err := q.InsertCategory(ctx, fromCoreCategory(c))
			if err != nil {
				return fmt.Errorf("insert category %q: %w", c.Title, err)
			}
			if inserted {
				created = append(created, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create categories: %w", err)
	}

	slog.InfoContext(ctx, "Categories saved to SQLite",
		"requested", len(categories),
		"created", len(created))
	return created, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// GetTransaction returns core.ErrNotFound when id does not exist.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction by id: %w", err)
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if err := r.queries.InsertTransaction(ctx, fromCoreTransaction(t)); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"title", t.Title,
		"type", t.Type,
		"value_cents", t.Value.Cents,
		"category_id", t.CategoryID)
	return nil
}

// CreateTransactions writes the whole batch in one database transaction.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, transactions []core.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	err := r.inTx(ctx, func(q *Queries) error {
		for _, t := range transactions {
			if err := q.InsertTransaction(ctx, fromCoreTransaction(t)); err != nil {
				return fmt.Errorf("insert transaction %q: %w", t.Title, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions saved to SQLite", "count", len(transactions))
	return nil
}

// DeleteTransaction returns core.ErrNotFound when id does not exist.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func fromCoreCategory(c core.Category) Category {
	return Category{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

func toCoreCategory(row Category) (core.Category, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Category{}, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		ID:        row.ID,
		Title:     row.Title,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func fromCoreTransaction(t core.Transaction) Transaction {
	return Transaction{
		ID:         t.ID,
		Title:      t.Title,
		Type:       t.Type.String(),
		ValueCents: t.Value.Cents,
		CategoryID: sql.NullString{String: t.CategoryID, Valid: t.CategoryID != ""},
		CreatedAt:  formatTime(t.CreatedAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
}

func toCoreTransaction(row Transaction) (core.Transaction, error) {
	var created, updated time.Time
	var err error
	if created, err = parseTime(row.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	if updated, err = parseTime(row.UpdatedAt); err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		ID:        row.ID,
		Title:     row.Title,
		Type:      core.TransactionType(row.Type),
		Value:     core.Money{Cents: row.ValueCents},
		CreatedAt: created,
		UpdatedAt: updated,
	}
	if row.CategoryID.Valid {
		t.CategoryID = row.CategoryID.String
		t.Category = &core.Category{ID: row.CategoryID.String, Title: row.CategoryTitle.String}
	}
	return t, nil
}
