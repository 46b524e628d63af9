package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table layout; timestamps are RFC3339Nano text.
type (
	Category struct {
		ID        string
		Title     string
		CreatedAt string
		UpdatedAt string
	}

	Transaction struct {
		ID            string
		Title         string
		Type          string
		ValueCents    int64
		CategoryID    sql.NullString
		CategoryTitle sql.NullString
		CreatedAt     string
		UpdatedAt     string
	}
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

const insertCategory = `
INSERT INTO categories (id, title, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(title) DO NOTHING`

// InsertCategory returns false when a category with the same title already exists.
func (q *Queries) InsertCategory(ctx context.Context, arg Category) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertCategory, arg.ID, arg.Title, arg.CreatedAt, arg.UpdatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const getCategoryByTitle = `
SELECT id, title, created_at, updated_at
FROM categories
WHERE title = ?`

func (q *Queries) GetCategoryByTitle(ctx context.Context, title string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategoryByTitle, title).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const listCategories = `
SELECT id, title, created_at, updated_at
FROM categories
ORDER BY title`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

// GetCategoriesByTitles looks up every title in one query.
func (q *Queries) GetCategoriesByTitles(ctx context.Context, titles []string) ([]Category, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	query := `
SELECT id, title, created_at, updated_at
FROM categories
WHERE title IN (` + placeholders(len(titles)) + `)`

	args := make([]interface{}, len(titles))
	for i, t := range titles {
		args[i] = t
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

func scanCategories(rows *sql.Rows) ([]Category, error) {
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTransaction = `
INSERT INTO transactions (id, title, type, value_cents, category_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, arg Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID, arg.Title, arg.Type, arg.ValueCents, arg.CategoryID, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const selectTransactions = `
SELECT t.id, t.title, t.type, t.value_cents, t.category_id, c.title, t.created_at, t.updated_at
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`

func (q *Queries) GetTransaction(ctx context.Context, id string) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, selectTransactions+` WHERE t.id = ?`, id)
	var t Transaction
	err := row.Scan(&t.ID, &t.Title, &t.Type, &t.ValueCents, &t.CategoryID, &t.CategoryTitle, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (q *Queries) ListTransactions(ctx context.Context) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, selectTransactions+` ORDER BY t.created_at, t.rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.Title, &t.Type, &t.ValueCents, &t.CategoryID, &t.CategoryTitle, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

// DeleteTransaction returns the number of removed rows.
func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
