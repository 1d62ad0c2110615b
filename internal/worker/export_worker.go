package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"txcat/internal/amqp"
	"txcat/internal/log"
	"txcat/internal/sheets"
	"txcat/internal/storage"
)

// claimTTL bounds how long a crashed exporter can hold a row.
const claimTTL = 5 * time.Minute

// Store is the slice of the repository the export worker needs.
type Store interface {
	Get(ctx context.Context, id int64) (storage.Record, error)
	PendingExport(ctx context.Context, limit int) ([]int64, error)
	ClaimExport(ctx context.Context, id int64, ttl time.Duration) (bool, error)
	ReleaseClaim(ctx context.Context, id int64) error
	MarkExported(ctx context.Context, id int64) error
}

// ExportWorker copies stored transactions to a spreadsheet
type ExportWorker struct {
	store     Store
	exporter  sheets.TransactionExporter
	batchSize int
	logger    *log.Logger
}

func NewExportWorker(store Store, exporter sheets.TransactionExporter, batchSize int, logger *log.Logger) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage processes a single transaction.created message from AMQP.
// Messages for unknown transactions are acknowledged and dropped.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	w.logger.DebugContext(ctx, "Processing export message",
		log.FieldTxID, msg.ID,
		log.FieldMessageID, msg.MessageID)

	err := w.export(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		w.logger.WarnContext(ctx, "Transaction not found, dropping message",
			log.FieldTxID, msg.ID,
			log.FieldMessageID, msg.MessageID)
		return nil
	}
	return err
}

// export appends the row and marks it exported. The row is claimed first,
// so the consumer and the sweep, or two workers, never append it twice.
func (w *ExportWorker) export(ctx context.Context, id int64) error {
	rec, err := w.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction %d: %w", id, err)
	}
	if rec.Exported {
		w.logger.DebugContext(ctx, "Transaction already exported", log.FieldTxID, id)
		return nil
	}

	claimed, err := w.store.ClaimExport(ctx, id, claimTTL)
	if err != nil {
		return fmt.Errorf("claim transaction %d: %w", id, err)
	}
	if !claimed {
		w.logger.DebugContext(ctx, "Transaction exported or claimed elsewhere", log.FieldTxID, id)
		return nil
	}

	ref, err := w.exporter.Export(ctx, rec.Transaction)
	if err != nil {
		if rerr := w.store.ReleaseClaim(context.WithoutCancel(ctx), id); rerr != nil {
			w.logger.WarnContext(ctx, "Failed to release export claim", log.FieldTxID, id, log.FieldError, rerr)
		}
		return fmt.Errorf("export transaction %d: %w", id, err)
	}

	if err := w.store.MarkExported(ctx, id); err != nil {
		return fmt.Errorf("mark transaction %d exported: %w", id, err)
	}

	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldTxID, id,
		log.FieldCategory, rec.Category,
		"row_ref", ref)
	return nil
}

// ProcessPending exports up to limit unexported transactions. It is the
// fallback for messages lost while the broker or the worker was down.
func (w *ExportWorker) ProcessPending(ctx context.Context, limit int) (exported int, err error) {
	ids, err := w.store.PendingExport(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", "count", len(ids))

	var failed int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		if err := w.export(ctx, id); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export transaction",
				log.FieldTxID, id,
				log.FieldError, err)
			failed++
			continue
		}
		exported++
	}

	if failed > 0 {
		w.logger.WarnContext(ctx, "Pending export finished with errors",
			"exported", exported, "failed", failed)
	}
	return exported, nil
}

// StartupCheck drains a larger batch of pending rows once at startup.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	n, err := w.ProcessPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup export check completed", "exported", n)
	return nil
}

// RunSweeper calls ProcessPending every interval until ctx is done.
func (w *ExportWorker) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx, w.batchSize); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Pending export sweep failed", log.FieldError, err)
			}
		}
	}
}
