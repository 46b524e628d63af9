package services

import (
	"context"
	"fmt"

	"finances/internal/core"
)

// BalanceService derives the balance from the full transaction set on every call.
type BalanceService struct {
	transactions TransactionStore
}

func NewBalanceService(transactions TransactionStore) *BalanceService {
	return &BalanceService{transactions: transactions}
}

func (s *BalanceService) GetBalance(ctx context.Context) (core.Balance, error) {
	txs, err := s.transactions.ListTransactions(ctx)
	if err != nil {
		return core.Balance{}, fmt.Errorf("list transactions: %w", err)
	}
	b, err := core.CalculateBalance(txs)
	if err != nil {
		return core.Balance{}, fmt.Errorf("calculate balance: %w", err)
	}
	return b, nil
}

// Overview is the transaction listing together with the balance computed from it.
type Overview struct {
	Transactions []core.Transaction
	Balance      core.Balance
}

func (s *BalanceService) Overview(ctx context.Context) (Overview, error) {
	txs, err := s.transactions.ListTransactions(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list transactions: %w", err)
	}
	b, err := core.CalculateBalance(txs)
	if err != nil {
		return Overview{}, fmt.Errorf("calculate balance: %w", err)
	}
	return Overview{Transactions: txs, Balance: b}, nil
}
