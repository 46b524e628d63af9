package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finances/internal/core"
)

// TransactionStore persists transactions. Lookups and deletes of unknown ids
// return core.ErrNotFound.
type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) error
	CreateTransactions(ctx context.Context, ts []core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// CategoryStore persists categories with a unique title. CreateCategory
// returns core.ErrCategoryExists when the title is taken; CreateCategories
// skips taken titles and returns only the rows it wrote.
type CategoryStore interface {
	GetCategoryByTitle(ctx context.Context, title string) (core.Category, error)
	GetCategoriesByTitles(ctx context.Context, titles []string) ([]core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) error
	CreateCategories(ctx context.Context, cs []core.Category) ([]core.Category, error)
}

// Store is the full persistence surface implemented by every backend.
type Store interface {
	TransactionStore
	CategoryStore
	Ping(ctx context.Context) error
	Close() error
}

// EventPublisher announces committed changes. A nil publisher disables events.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, t core.Transaction) error
	PublishTransactionDeleted(ctx context.Context, id string) error
}

type (
	clockFunc func() time.Time
	idFunc    func() string
)

func defaultClock() time.Time { return time.Now().UTC() }

func defaultID() string { return uuid.NewString() }

// publishCreated never fails the caller: the change is already persisted.
func publishCreated(ctx context.Context, events EventPublisher, txs ...core.Transaction) {
	if events == nil {
		return
	}
	for _, t := range txs {
		if err := events.PublishTransactionCreated(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction event",
				"event", "transaction.created", "id", t.ID, "error", err)
		}
	}
}

func publishDeleted(ctx context.Context, events EventPublisher, id string) {
	if events == nil {
		return
	}
	if err := events.PublishTransactionDeleted(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"event", "transaction.deleted", "id", id, "error", err)
	}
}
