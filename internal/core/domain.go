package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Outcome TransactionType = "outcome"
)

// DefaultCategoryTitle is used for imported rows that leave the category cell empty.
const DefaultCategoryTitle = "Uncategorized"

const maxTitleLength = 200

type (
	TransactionType string

	Category struct {
		ID        string
		Title     string
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Transaction struct {
		ID         string
		Title      string
		Type       TransactionType
		Value      Money
		CategoryID string
		Category   *Category // populated on reads
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}
)

var (
	ErrNotFound       = errors.New("not found")
	ErrCategoryExists = errors.New("category already exists")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount out of range")
	ErrInvalidType    = errors.New("invalid transaction type")
	ErrEmptyTitle     = errors.New("empty title")
	ErrEmptyCategory  = errors.New("empty category")
	ErrTitleTooLong   = errors.New("title too long (max 200 characters)")
)

// ParseTransactionType accepts "income" or "outcome", ignoring case and surrounding spaces.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Outcome:
		return true
	default:
		return false
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (c Category) Validate() error {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return ErrEmptyCategory
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func (t Transaction) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if err := t.Value.Validate(); err != nil {
		return err
	}
	return nil
}

// CategoryTitle returns the title of the joined category, or "" when it was not loaded.
func (t Transaction) CategoryTitle() string {
	if t.Category == nil {
		return ""
	}
	return t.Category.Title
}
