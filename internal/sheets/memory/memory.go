package memory

import (
	"context"
	"fmt"
	"sync"

	"txcat/internal/core"
	ports "txcat/internal/sheets"
)

// Store is an in-memory spreadsheet used when no Google Sheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []core.Transaction
}

var (
	_ ports.TransactionExporter = (*Store)(nil)
	_ ports.MonthReader         = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Export stores the transaction and returns a synthetic row reference.
func (s *Store) Export(_ context.Context, tx core.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, tx)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// ReadMonth returns the stored rows dated within month, in export order.
func (s *Store) ReadMonth(_ context.Context, month core.Month) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.rows {
		if month.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Rows returns a copy of every exported row.
func (s *Store) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}
