// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. Transaction values are never negative,
// balance totals can be.
type Money struct {
	Cents int64
}

// maxMoney keeps cents inside int64 after the shift by two places.
var maxMoney = decimal.New(1<<62, -2)

// ParseMoney converts a decimal string to Money with half-up rounding on the
// third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Zero is
// allowed; negative values, empty strings and malformed numbers are not.
//
// Examples:
//
//	ParseMoney("12.34")  -> {1234}, nil
//	ParseMoney("12,34")  -> {1234}, nil
//	ParseMoney("12.345") -> {1235}, nil (rounds up)
//	ParseMoney("5000")   -> {500000}, nil
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() || d.GreaterThan(maxMoney) {
		return Money{}, ErrInvalidAmount
	}

	return Money{Cents: d.Round(2).Shift(2).IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimal places, e.g. "1200.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m+o, or ErrAmountOverflow when the sum leaves the int64 range.
func (m Money) Add(o Money) (Money, error) {
	sum := m.Cents + o.Cents
	if (o.Cents > 0 && sum < m.Cents) || (o.Cents < 0 && sum > m.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: sum}, nil
}

// Sub returns m-o, or ErrAmountOverflow when the difference leaves the int64 range.
func (m Money) Sub(o Money) (Money, error) {
	diff := m.Cents - o.Cents
	if (o.Cents > 0 && diff > m.Cents) || (o.Cents < 0 && diff < m.Cents) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Cents: diff}, nil
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}
