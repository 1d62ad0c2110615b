package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"txcat/internal/amqp"
	"txcat/internal/core"
	"txcat/internal/log"
	"txcat/internal/sheets/memory"
	"txcat/internal/storage"
)

type fakeStore struct {
	mu       sync.Mutex
	records  map[int64]storage.Record
	getErr   error
	markErr  error
	marked   []int64
	claimed  map[int64]bool
	released []int64
	pendingN int
}

func newFakeStore(txs ...core.Transaction) *fakeStore {
	s := &fakeStore{records: map[int64]storage.Record{}, claimed: map[int64]bool{}}
	for _, tx := range txs {
		s.records[tx.ID] = storage.Record{Transaction: tx}
	}
	return s
}

func (s *fakeStore) Get(_ context.Context, id int64) (storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return storage.Record{}, s.getErr
	}
	rec, ok := s.records[id]
	if !ok {
		return storage.Record{}, fmt.Errorf("transaction %d: %w", id, storage.ErrNotFound)
	}
	return rec, nil
}

func (s *fakeStore) PendingExport(_ context.Context, limit int) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingN++
	var ids []int64
	for id := int64(1); id <= int64(len(s.records)) && len(ids) < limit; id++ {
		if rec, ok := s.records[id]; ok && !rec.Exported {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) ClaimExport(_ context.Context, id int64, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed == nil {
		s.claimed = map[int64]bool{}
	}
	rec, ok := s.records[id]
	if !ok || rec.Exported || s.claimed[id] {
		return false, nil
	}
	s.claimed[id] = true
	return true, nil
}

func (s *fakeStore) ReleaseClaim(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, id)
	s.released = append(s.released, id)
	return nil
}

func (s *fakeStore) MarkExported(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	rec := s.records[id]
	rec.Exported = true
	s.records[id] = rec
	s.marked = append(s.marked, id)
	return nil
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

func sampleTx(id int64) core.Transaction {
	return core.Transaction{
		ID:       id,
		Amount:   core.Money{Cents: 1000 * id},
		Merchant: "Starbucks",
		Category: core.CategoryFoodDining,
		Date:     core.NewDate(2024, 1, int(id)),
	}
}

func TestExportWorker_HandleMessage(t *testing.T) {
	store := newFakeStore(sampleTx(1))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 10, log.Discard())

	msg := amqp.NewTransactionCreatedMessage(1)
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 1 || rows[0].ID != 1 {
		t.Fatalf("rows = %+v", rows)
	}
	if len(store.marked) != 1 || store.marked[0] != 1 {
		t.Errorf("marked = %v, want [1]", store.marked)
	}

	// Redelivery must not duplicate the row.
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() redelivery error = %v", err)
	}
	if rows := sheet.Rows(); len(rows) != 1 {
		t.Errorf("rows after redelivery = %d, want 1", len(rows))
	}
}

func TestExportWorker_HandleMessageErrors(t *testing.T) {
	tests := []struct {
		name     string
		store    *fakeStore
		exporter interface {
			Export(context.Context, core.Transaction) (string, error)
		}
		id      int64
		wantErr bool
	}{
		{
			name:     "missing transaction is dropped",
			store:    newFakeStore(),
			exporter: memory.New(),
			id:       42,
			wantErr:  false,
		},
		{
			name:     "storage failure is reported",
			store:    &fakeStore{records: map[int64]storage.Record{}, getErr: errors.New("database is locked")},
			exporter: memory.New(),
			id:       1,
			wantErr:  true,
		},
		{
			name:     "export failure is reported",
			store:    newFakeStore(sampleTx(1)),
			exporter: failingExporter{},
			id:       1,
			wantErr:  true,
		},
		{
			name:     "mark failure is reported",
			store:    &fakeStore{records: map[int64]storage.Record{1: {Transaction: sampleTx(1)}}, markErr: errors.New("disk full")},
			exporter: memory.New(),
			id:       1,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewExportWorker(tt.store, tt.exporter, 10, log.Discard())
			err := w.HandleMessage(context.Background(), amqp.NewTransactionCreatedMessage(tt.id))
			if (err != nil) != tt.wantErr {
				t.Errorf("HandleMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExportWorker_ProcessPending(t *testing.T) {
	store := newFakeStore(sampleTx(1), sampleTx(2), sampleTx(3))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 2, log.Discard())

	n, err := w.ProcessPending(context.Background(), 2)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if n != 2 {
		t.Errorf("exported = %d, want 2", n)
	}

	n, err = w.ProcessPending(context.Background(), 2)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if n != 1 {
		t.Errorf("exported = %d, want 1", n)
	}
	if len(sheet.Rows()) != 3 {
		t.Errorf("rows = %d, want 3", len(sheet.Rows()))
	}

	n, _ = w.ProcessPending(context.Background(), 2)
	if n != 0 {
		t.Errorf("exported = %d, want 0 once drained", n)
	}
}

func TestExportWorker_ProcessPendingContinuesOnError(t *testing.T) {
	store := newFakeStore(sampleTx(1), sampleTx(2))
	w := NewExportWorker(store, failingExporter{}, 10, log.Discard())

	n, err := w.ProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if n != 0 {
		t.Errorf("exported = %d, want 0", n)
	}
}

func TestExportWorker_StartupCheck(t *testing.T) {
	store := newFakeStore(sampleTx(1), sampleTx(2), sampleTx(3))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 1, log.Discard())

	if err := w.StartupCheck(context.Background()); err != nil {
		t.Fatalf("StartupCheck() error = %v", err)
	}
	if len(sheet.Rows()) != 3 {
		t.Errorf("rows = %d, want 3", len(sheet.Rows()))
	}
}

func TestExportWorker_RunSweeper(t *testing.T) {
	store := newFakeStore(sampleTx(1))
	sheet := memory.New()
	w := NewExportWorker(store, sheet, 10, log.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := w.RunSweeper(ctx, 10*time.Millisecond); err != nil {
		t.Fatalf("RunSweeper() error = %v", err)
	}
	if len(sheet.Rows()) != 1 {
		t.Errorf("rows = %d, want 1", len(sheet.Rows()))
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.pendingN < 2 {
		t.Errorf("sweeps = %d, want at least 2", store.pendingN)
	}
}

// slowExporter widens the window between claiming a row and marking it.
type slowExporter struct {
	*memory.Store
	delay time.Duration
}

func (e slowExporter) Export(ctx context.Context, tx core.Transaction) (string, error) {
	time.Sleep(e.delay)
	return e.Store.Export(ctx, tx)
}

func TestExportWorker_ConsumerAndSweepExportOnce(t *testing.T) {
	tests := []struct {
		name  string
		store func(t *testing.T) (Store, int64)
	}{
		{
			name: "fake store",
			store: func(t *testing.T) (Store, int64) {
				return newFakeStore(sampleTx(1)), 1
			},
		},
		{
			name: "sqlite",
			store: func(t *testing.T) (Store, int64) {
				repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "txcat.db"))
				if err != nil {
					t.Fatalf("NewSQLiteRepository: %v", err)
				}
				t.Cleanup(func() { _ = repo.Close() })
				tx, err := repo.Create(context.Background(), sampleTx(1))
				if err != nil {
					t.Fatalf("Create: %v", err)
				}
				return repo, tx.ID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, id := tt.store(t)
			sheet := memory.New()
			w := NewExportWorker(store, slowExporter{Store: sheet, delay: 50 * time.Millisecond}, 10, log.Discard())

			ctx := context.Background()
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				if err := w.HandleMessage(ctx, amqp.NewTransactionCreatedMessage(id)); err != nil {
					t.Errorf("HandleMessage() error = %v", err)
				}
			}()
			go func() {
				defer wg.Done()
				if _, err := w.ProcessPending(ctx, 10); err != nil {
					t.Errorf("ProcessPending() error = %v", err)
				}
			}()
			wg.Wait()

			if rows := sheet.Rows(); len(rows) != 1 {
				t.Fatalf("spreadsheet rows = %d, want 1", len(rows))
			}
			rec, err := store.Get(ctx, id)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !rec.Exported {
				t.Error("row not marked exported")
			}
		})
	}
}

func TestExportWorker_FailedExportReleasesClaim(t *testing.T) {
	store := newFakeStore(sampleTx(1))
	w := NewExportWorker(store, failingExporter{}, 10, log.Discard())

	if err := w.HandleMessage(context.Background(), amqp.NewTransactionCreatedMessage(1)); err == nil {
		t.Fatal("HandleMessage() error = nil, want export failure")
	}
	if len(store.released) != 1 || store.released[0] != 1 {
		t.Fatalf("released = %v, want [1]", store.released)
	}

	// The next sweep can take the row again.
	sheet := memory.New()
	w = NewExportWorker(store, sheet, 10, log.Discard())
	if n, err := w.ProcessPending(context.Background(), 10); err != nil || n != 1 {
		t.Fatalf("ProcessPending() = %d, %v; want 1", n, err)
	}
	if len(sheet.Rows()) != 1 {
		t.Errorf("rows = %d, want 1", len(sheet.Rows()))
	}
}
