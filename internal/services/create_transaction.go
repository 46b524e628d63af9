package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finances/internal/core"
	"finances/internal/log"
)

type CreateTransactionRequest struct {
	Title    string
	Type     string
	Value    core.Money
	Category string
}

type balanceReader interface {
	GetBalance(ctx context.Context) (core.Balance, error)
}

type categoryResolver interface {
	Resolve(ctx context.Context, title string) (core.Category, error)
}

// CreateTransactionService records a single transaction. An outcome that would
// take the balance below zero is refused with a 400 "Negative balance" error.
// The balance is read without locking, so two concurrent outcomes can both pass.
type CreateTransactionService struct {
	balance    balanceReader
	categories categoryResolver
	store      TransactionStore
	events     EventPublisher
	now        clockFunc
	newID      idFunc
}

func NewCreateTransactionService(balance balanceReader, categories categoryResolver, store TransactionStore, events EventPublisher) *CreateTransactionService {
	return &CreateTransactionService{
		balance:    balance,
		categories: categories,
		store:      store,
		events:     events,
		now:        defaultClock,
		newID:      defaultID,
	}
}

func (s *CreateTransactionService) Execute(ctx context.Context, req CreateTransactionRequest) (core.Transaction, error) {
	typ, err := validateCreateRequest(&req)
	if err != nil {
		return core.Transaction{}, err
	}

	balance, err := s.balance.GetBalance(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get balance: %w", err)
	}

	category, err := s.categories.Resolve(ctx, req.Category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve category: %w", err)
	}

	if typ == core.Outcome && !balance.CanWithdraw(req.Value) {
		slog.WarnContext(ctx, "Transaction refused: negative balance",
			"title", req.Title,
			"value_cents", req.Value.Cents,
			"total_cents", balance.Total.Cents)
		return core.Transaction{}, core.NewValidationError("Negative balance")
	}
	if typ == core.Income && !balance.CanDeposit(req.Value) {
		return core.Transaction{}, core.NewValidationError("Balance limit exceeded").WithCause(core.ErrAmountOverflow)
	}

	now := s.now()
	t := core.Transaction{
		ID:         s.newID(),
		Title:      req.Title,
		Type:       typ,
		Value:      req.Value,
		CategoryID: category.ID,
		Category:   &category,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	log.NewStructuredLogger(log.FromContext(ctx)).
		LogTransactionCreated(ctx, t.ID, t.Title, t.Type.String(), t.Value.Cents, category.Title)

	publishCreated(ctx, s.events, t)
	return t, nil
}

// validateCreateRequest trims the text fields in place and returns the parsed type.
func validateCreateRequest(req *CreateTransactionRequest) (core.TransactionType, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)

	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return "", core.NewValidationError("Type must be income or outcome").WithCause(err)
	}

	err = core.Transaction{Title: req.Title, Type: typ, Value: req.Value}.Validate()
	switch {
	case errors.Is(err, core.ErrEmptyTitle):
		return "", core.NewValidationError("Title is required").WithCause(err)
	case errors.Is(err, core.ErrTitleTooLong):
		return "", core.NewValidationError("Title is too long").WithCause(err)
	case errors.Is(err, core.ErrInvalidAmount):
		return "", core.NewValidationError("Value must not be negative").WithCause(err)
	case err != nil:
		return "", core.NewValidationError(err.Error()).WithCause(err)
	}

	if req.Category == "" {
		return "", core.NewValidationError("Category is required").WithCause(core.ErrEmptyCategory)
	}
	return typ, nil
}
