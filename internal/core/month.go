package core

import (
	"errors"
	"fmt"
	"time"
)

// MonthLayout is the format of month keys.
const MonthLayout = "2006-01"

var ErrInvalidMonth = errors.New("invalid month, expected YYYY-MM")

// Month identifies a calendar month, e.g. 2024-03.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a strict YYYY-MM key.
func ParseMonth(s string) (Month, error) {
	if len(s) != len(MonthLayout) {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first day of the month.
func (m Month) Start() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// End returns the first day of the following month, the exclusive upper
// bound of the month.
func (m Month) End() Date {
	return Date{Time: m.Start().AddDate(0, 1, 0)}
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return d.MonthKey() == m
}
