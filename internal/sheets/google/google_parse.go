package google

import (
	"fmt"
	"strings"

	"txcat/internal/core"
)

// parseRows converts a values matrix (as returned by Sheets API) into the
// transactions of month. Header rows and rows that do not parse are skipped.
func parseRows(values [][]any, month core.Month) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, row := range values {
		tx, ok := parseRow(toStrings(row))
		if !ok || !month.Contains(tx.Date) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func parseRow(cols []string) (core.Transaction, bool) {
	if len(cols) < 3 {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(cols[0])
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := core.ParseMoney(normalizeAmount(cols[2]))
	if err != nil {
		return core.Transaction{}, false
	}
	merchant := cols[1]
	category := safeGet(cols, 3)
	if !core.IsCategory(category) {
		category = core.Categorize(merchant)
	}
	return core.Transaction{
		Amount:   amount,
		Merchant: merchant,
		Category: category,
		Date:     date,
	}, true
}

// normalizeAmount strips currency symbols and thousands separators that
// USER_ENTERED formatting may add when the sheet renders the value.
func normalizeAmount(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£ ")
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
