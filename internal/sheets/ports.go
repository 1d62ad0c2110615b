package sheets

import (
	"context"

	"txcat/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter appends one categorized transaction as a
	// spreadsheet row [date, merchant, amount, category].
	TransactionExporter interface {
		Export(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// MonthReader reads exported rows back for a single month.
	MonthReader interface {
		ReadMonth(ctx context.Context, month core.Month) ([]core.Transaction, error)
	}
)

// Row returns the cell values written for tx.
func Row(tx core.Transaction) []string {
	return []string{tx.Date.String(), tx.Merchant, tx.Amount.String(), tx.Category}
}
