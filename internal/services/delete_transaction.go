package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"finances/internal/core"
)

// DeleteTransactionService removes a transaction by id. No balance check is made.
type DeleteTransactionService struct {
	store  TransactionStore
	events EventPublisher
}

func NewDeleteTransactionService(store TransactionStore, events EventPublisher) *DeleteTransactionService {
	return &DeleteTransactionService{store: store, events: events}
}

func (s *DeleteTransactionService) Execute(ctx context.Context, id string) error {
	if _, err := s.store.GetTransaction(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return transactionNotFound()
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return transactionNotFound()
		}
		return fmt.Errorf("delete transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	publishDeleted(ctx, s.events, id)
	return nil
}

func transactionNotFound() *core.AppError {
	return core.NewNotFoundError("Transaction not found").WithCause(core.ErrNotFound)
}
