package core

// CategoryTotal is one row of a per-category aggregate.
type CategoryTotal struct {
	Category string
	Count    int64
	Total    Money
}

// MonthlySummary aggregates the transactions of one month.
type MonthlySummary struct {
	Month            string           `json:"month"`
	TransactionCount int64            `json:"transaction_count"`
	OverallTotal     Money            `json:"overall_total"`
	TotalsByCategory map[string]Money `json:"totals_by_category"`
	CountsByCategory map[string]int64 `json:"counts_by_category"`
}

// NewMonthlySummary folds grouped rows into a summary. Overall figures are
// always the sums of the per-category figures. Rows sharing a category are
// merged.
func NewMonthlySummary(month Month, rows []CategoryTotal) MonthlySummary {
	s := MonthlySummary{
		Month:            month.String(),
		TotalsByCategory: make(map[string]Money, len(rows)),
		CountsByCategory: make(map[string]int64, len(rows)),
	}
	for _, r := range rows {
		s.TotalsByCategory[r.Category] = s.TotalsByCategory[r.Category].Add(r.Total)
		s.CountsByCategory[r.Category] += r.Count
		s.OverallTotal = s.OverallTotal.Add(r.Total)
		s.TransactionCount += r.Count
	}
	return s
}

// Summarize aggregates in memory. Transactions outside month are ignored.
func Summarize(month Month, txs []Transaction) MonthlySummary {
	byCategory := make(map[string]*CategoryTotal)
	var order []string
	for _, tx := range txs {
		if !month.Contains(tx.Date) {
			continue
		}
		ct, ok := byCategory[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = ct
			order = append(order, tx.Category)
		}
		ct.Count++
		ct.Total = ct.Total.Add(tx.Amount)
	}
	rows := make([]CategoryTotal, 0, len(order))
	for _, c := range order {
		rows = append(rows, *byCategory[c])
	}
	return NewMonthlySummary(month, rows)
}
