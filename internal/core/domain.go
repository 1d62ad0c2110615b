package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// MaxMerchantLength bounds the merchant name in runes.
const MaxMerchantLength = 200

type (
	// Date is a calendar date in UTC with no time component.
	Date struct {
		time.Time
	}

	// Transaction is a stored, categorized transaction.
	Transaction struct {
		ID       int64  `json:"id"`
		Amount   Money  `json:"amount"`
		Merchant string `json:"merchant"`
		Category string `json:"category"`
		Date     Date   `json:"date"`
	}

	// NewTransaction is the payload accepted when creating a transaction.
	// Category is never supplied by callers; it is derived from Merchant.
	NewTransaction struct {
		Amount   Money  `json:"amount"`
		Merchant string `json:"merchant"`
		Date     Date   `json:"date"`
	}

	// Filter restricts a transaction listing to an inclusive date range.
	// A nil bound is open.
	Filter struct {
		Start *Date
		End   *Date
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyMerchant   = errors.New("empty merchant")
	ErrMerchantTooLong = fmt.Errorf("merchant too long (max %d characters)", MaxMerchantLength)
	ErrInvalidRange    = errors.New("start date is after end date")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the month the date belongs to.
func (d Date) MonthKey() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Normalize trims surrounding whitespace from the merchant.
func (n NewTransaction) Normalize() NewTransaction {
	n.Merchant = strings.TrimSpace(n.Merchant)
	return n
}

// Validate checks the merchant and amount. Every Date value is a valid
// calendar date, including the zero value 0001-01-01; callers decoding
// input are responsible for rejecting a missing date.
func (n NewTransaction) Validate() error {
	if strings.TrimSpace(n.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if utf8.RuneCountInString(n.Merchant) > MaxMerchantLength {
		return ErrMerchantTooLong
	}
	if err := n.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

func (f Filter) Validate() error {
	if f.Start != nil && f.End != nil && f.Start.After(f.End.Time) {
		return ErrInvalidRange
	}
	return nil
}
