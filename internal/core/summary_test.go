package core

import (
	"encoding/json"
	"testing"
	"time"
)

func tx(amount int64, merchant string, d Date) Transaction {
	return Transaction{Amount: Money{Cents: amount}, Merchant: merchant, Category: Categorize(merchant), Date: d}
}

func TestSummarizeEmptyMonth(t *testing.T) {
	s := Summarize(Month{Year: 2024, Month: time.May}, nil)
	if s.Month != "2024-05" || s.TransactionCount != 0 || s.OverallTotal.Cents != 0 || len(s.TotalsByCategory) != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"month":"2024-05","transaction_count":0,"overall_total":0.00,"totals_by_category":{},"counts_by_category":{}}`
	if string(out) != want {
		t.Fatalf("got %s", out)
	}
}

func TestSummarizeTotalsAddUp(t *testing.T) {
	month := Month{Year: 2024, Month: time.January}
	txs := []Transaction{
		tx(450, "Starbucks Downtown", NewDate(2024, 1, 2)),
		tx(1299, "Uber Trip", NewDate(2024, 1, 3)),
		tx(5000, "Walmart", NewDate(2024, 1, 31)),
		tx(2001, "Corner Restaurant", NewDate(2024, 1, 15)),
		tx(-300, "Unknown Shop", NewDate(2024, 1, 20)),
		tx(9999, "Starbucks", NewDate(2024, 2, 1)),  // next month
		tx(9999, "Starbucks", NewDate(2023, 1, 10)), // same month, other year
	}
	s := Summarize(month, txs)

	if s.TransactionCount != 5 {
		t.Fatalf("count %d", s.TransactionCount)
	}
	if s.OverallTotal.Cents != 450+1299+5000+2001-300 {
		t.Fatalf("total %d", s.OverallTotal.Cents)
	}
	if s.TotalsByCategory[CategoryFoodDining].Cents != 2451 || s.CountsByCategory[CategoryFoodDining] != 2 {
		t.Fatalf("food %+v / %d", s.TotalsByCategory[CategoryFoodDining], s.CountsByCategory[CategoryFoodDining])
	}

	var sum Money
	var count int64
	for c, v := range s.TotalsByCategory {
		sum = sum.Add(v)
		count += s.CountsByCategory[c]
	}
	if sum != s.OverallTotal || count != s.TransactionCount {
		t.Fatalf("per-category figures do not add up: %v/%d vs %v/%d", sum, count, s.OverallTotal, s.TransactionCount)
	}
}

func TestNewMonthlySummaryMergesDuplicateRows(t *testing.T) {
	s := NewMonthlySummary(Month{Year: 2024, Month: time.June}, []CategoryTotal{
		{Category: CategoryGroceries, Count: 1, Total: Money{Cents: 100}},
		{Category: CategoryGroceries, Count: 2, Total: Money{Cents: 250}},
	})
	if len(s.TotalsByCategory) != 1 || s.TotalsByCategory[CategoryGroceries].Cents != 350 || s.TransactionCount != 3 {
		t.Fatalf("unexpected %+v", s)
	}
}
