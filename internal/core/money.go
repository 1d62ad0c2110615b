// Package core provides the transaction domain: amounts, dates, month keys,
// the merchant categorizer and the monthly summary.
//
// This file contains the Money type. Amounts travel as decimals and are
// kept as integer cents so that sums stay exact.
package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxAmountCents caps the absolute value of a single transaction.
const MaxAmountCents int64 = 1_000_000_000 * 100

// Money is an amount with two fractional digits.
type Money struct {
	Cents int64
}

var (
	hundred  = decimal.NewFromInt(100)
	maxCents = decimal.NewFromInt(MaxAmountCents)
)

// NewMoney rounds d half away from zero to cents and rejects amounts beyond MaxAmountCents. The
// range is checked on the decimal, before it is narrowed to int64.
func NewMoney(d decimal.Decimal) (Money, error) {
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(maxCents) {
		return Money{}, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseMoney parses a decimal string such as "12.34" or "-3".
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("12.345") -> 1235 (rounds half away from zero)
//	ParseMoney("-4.5")   -> -450
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NewMoney(d)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

func (m Money) Add(n Money) Money {
	return Money{Cents: m.Cents + n.Cents}
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Validate() error {
	if m.Cents > MaxAmountCents || m.Cents < -MaxAmountCents {
		return fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return nil
}

// MarshalJSON writes the amount as a bare JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, data)
	}
	parsed, err := NewMoney(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
