package core

import (
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"outcome", Outcome, true},
		{" Outcome ", Outcome, true},
		{"expense", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Title: "Salary", Type: Income, Value: Money{Cents: 500000}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := Transaction{Title: "Gift", Type: Income, Value: Money{}}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero value should be allowed, got %v", err)
	}

	bads := []struct {
		tx   Transaction
		want error
	}{
		{Transaction{Title: " ", Type: Income, Value: Money{Cents: 1}}, ErrEmptyTitle},
		{Transaction{Title: strings.Repeat("x", 201), Type: Income, Value: Money{Cents: 1}}, ErrTitleTooLong},
		{Transaction{Title: "a", Type: "transfer", Value: Money{Cents: 1}}, ErrInvalidType},
		{Transaction{Title: "a", Type: Outcome, Value: Money{Cents: -1}}, ErrInvalidAmount},
	}
	for i, tc := range bads {
		if err := tc.tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Title: "Food"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Category{Title: "  "}).Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestCalculateBalance(t *testing.T) {
	if b, err := CalculateBalance(nil); err != nil || b != (Balance{}) {
		t.Fatalf("empty set should yield zeros, got %+v (err=%v)", b, err)
	}

	txs := []Transaction{
		{Type: Income, Value: Money{Cents: 500000}},
		{Type: Outcome, Value: Money{Cents: 120000}},
		{Type: Income, Value: Money{Cents: 1000}},
		{Type: Outcome, Value: Money{Cents: 500}},
	}
	b, err := CalculateBalance(txs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Income.Cents != 501000 || b.Outcome.Cents != 120500 || b.Total.Cents != 380500 {
		t.Fatalf("unexpected balance: %+v", b)
	}
	if total, _ := b.Income.Sub(b.Outcome); b.Total != total {
		t.Fatalf("total must equal income - outcome")
	}
	if !b.CanWithdraw(Money{Cents: 380500}) {
		t.Fatalf("withdrawing the whole total should be allowed")
	}
	if b.CanWithdraw(Money{Cents: 380501}) {
		t.Fatalf("withdrawing more than the total should be refused")
	}
}

func TestCalculateBalanceNearMaximumValues(t *testing.T) {
	big, err := ParseMoney("46116860184273879.03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	txs := []Transaction{
		{Type: Income, Value: big},
		{Type: Income, Value: big},
		{Type: Income, Value: big},
	}
	if _, err := CalculateBalance(txs); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}

	b, err := CalculateBalance(txs[:2])
	if err != nil {
		t.Fatalf("two maximum incomes still fit: %v", err)
	}
	if !b.CanWithdraw(Money{Cents: 100}) {
		t.Fatalf("a small outcome must fit under a large income")
	}
	if b.CanDeposit(big) {
		t.Fatalf("a third maximum income would overflow the income sum")
	}
	if (Balance{Total: Money{Cents: -(1 << 62)}}).CanWithdraw(big) {
		t.Fatalf("an overflowing difference must be refused")
	}
}

func TestMoneyCheckedArithmetic(t *testing.T) {
	largest := Money{Cents: 1<<63 - 1}
	if _, err := largest.Add(Money{Cents: 1}); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow on Add, got %v", err)
	}
	if _, err := (Money{Cents: -(1 << 62)}).Sub(largest); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow on Sub, got %v", err)
	}
	if got, err := (Money{Cents: 250}).Sub(Money{Cents: 400}); err != nil || got.Cents != -150 {
		t.Fatalf("Sub = %d (err=%v)", got.Cents, err)
	}
}

func TestAppErrorStatus(t *testing.T) {
	v := NewValidationError("Negative balance")
	if StatusOf(v) != http.StatusBadRequest {
		t.Fatalf("validation status = %d", StatusOf(v))
	}
	nf := NewNotFoundError("Transaction not found").WithCause(ErrNotFound)
	wrapped := errors.Join(errors.New("context"), nf)
	if StatusOf(wrapped) != http.StatusNotFound {
		t.Fatalf("not found status = %d", StatusOf(wrapped))
	}
	if !errors.Is(nf, ErrNotFound) {
		t.Fatalf("cause should be reachable through errors.Is")
	}
	if StatusOf(errors.New("boom")) != http.StatusInternalServerError {
		t.Fatalf("plain errors map to 500")
	}
}
