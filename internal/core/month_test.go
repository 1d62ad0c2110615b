package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Year != 2024 || m.Month != time.March || m.String() != "2024-03" {
		t.Fatalf("got %+v", m)
	}
	for _, in := range []string{"", "2024-3", "2024-13", "24-03", "2024-03-01", "March"} {
		if _, err := ParseMonth(in); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q: expected ErrInvalidMonth, got %v", in, err)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	m := Month{Year: 2023, Month: time.December}
	if m.Start() != NewDate(2023, 12, 1) {
		t.Fatalf("start %s", m.Start())
	}
	if m.End() != NewDate(2024, 1, 1) {
		t.Fatalf("end %s", m.End())
	}
	if !m.Contains(NewDate(2023, 12, 31)) || m.Contains(NewDate(2024, 1, 1)) || m.Contains(NewDate(2022, 12, 5)) {
		t.Fatalf("contains misbehaves")
	}
}
