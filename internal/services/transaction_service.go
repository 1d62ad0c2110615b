package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"txcat/internal/core"
	"txcat/internal/log"
	"txcat/internal/storage"
)

// publishTimeout bounds how long a create request waits on the broker.
const publishTimeout = 3 * time.Second

// ErrNotFound is returned when a transaction does not exist.
var ErrNotFound = storage.ErrNotFound

// Repository is the persistence the service needs.
type Repository interface {
	Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Get(ctx context.Context, id int64) (storage.Record, error)
	List(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	MonthlySummary(ctx context.Context, month core.Month) (core.MonthlySummary, error)
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces created transactions to the export pipeline.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, id int64) error
	Close() error
}

// TransactionService orchestrates transaction operations across storage and AMQP
type TransactionService struct {
	repo      Repository
	publisher Publisher
	logger    *log.Logger
}

// NewTransactionService wires the service. publisher may be nil, in which
// case transactions are only stored and the worker's sweep exports them.
func NewTransactionService(repo Repository, publisher Publisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTx),
	}
}

// Create validates the payload, assigns its category from the merchant
// name, stores it and publishes a transaction.created event. A publish
// failure is logged and does not fail the request.
func (s *TransactionService) Create(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("invalid transaction: %w", err)
	}

	tx := core.Transaction{
		Amount:   in.Amount,
		Merchant: in.Merchant,
		Category: core.Categorize(in.Merchant),
		Date:     in.Date,
	}

	saved, err := s.repo.Create(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithTransaction(saved.ID, saved.Merchant, saved.Category, saved.Amount.Cents, saved.Date.String()).
			ToSlice()...)

	s.publishCreated(ctx, saved.ID)
	return saved, nil
}

func (s *TransactionService) publishCreated(ctx context.Context, id int64) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping export event", log.FieldTxID, id)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.PublishTransactionCreated(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction created event",
			log.FieldTxID, id,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

// List returns the transactions dated within the inclusive range of f,
// ordered by date then id.
func (s *TransactionService) List(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	txs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Get returns one transaction or an error wrapping ErrNotFound.
func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	if id <= 0 {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ErrNotFound)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return rec.Transaction, nil
}

// Summary aggregates the transactions of month by category.
func (s *TransactionService) Summary(ctx context.Context, month core.Month) (core.MonthlySummary, error) {
	summary, err := s.repo.MonthlySummary(ctx, month)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("summarize %s: %w", month, err)
	}
	s.logger.DebugContext(ctx, "Monthly summary computed",
		log.FieldMonth, month.String(),
		"transaction_count", summary.TransactionCount)
	return summary, nil
}

// Categories returns every label a transaction can be assigned.
func (s *TransactionService) Categories() []string {
	return core.Categories()
}

// Ping reports whether the database is reachable.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close closes both storage and AMQP connections
func (s *TransactionService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close transaction service: %w", err)
	}
	return nil
}
