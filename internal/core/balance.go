package core

import "fmt"

// Balance is derived from the full transaction set and never persisted.
type Balance struct {
	Income  Money
	Outcome Money
	Total   Money
}

// CalculateBalance sums income and outcome values separately; Total is Income - Outcome.
// Transactions with an unknown type contribute to neither side. A sum that does
// not fit in int64 cents yields ErrAmountOverflow.
func CalculateBalance(transactions []Transaction) (Balance, error) {
	var b Balance
	var err error
	for _, t := range transactions {
		switch t.Type {
		case Income:
			b.Income, err = b.Income.Add(t.Value)
		case Outcome:
			b.Outcome, err = b.Outcome.Add(t.Value)
		}
		if err != nil {
			return Balance{}, fmt.Errorf("sum %s transactions: %w", t.Type, err)
		}
	}
	if b.Total, err = b.Income.Sub(b.Outcome); err != nil {
		return Balance{}, fmt.Errorf("compute total: %w", err)
	}
	return b, nil
}

// CanWithdraw reports whether an outcome of v keeps the total at or above zero.
func (b Balance) CanWithdraw(v Money) bool {
	rest, err := b.Total.Sub(v)
	return err == nil && !rest.IsNegative()
}

// CanDeposit reports whether an income of v still fits in the balance sums.
func (b Balance) CanDeposit(v Money) bool {
	_, err := b.Income.Add(v)
	return err == nil
}
