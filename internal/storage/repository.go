package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"txcat/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrNotFound = errors.New("transaction not found")

// Record is a stored transaction together with its export state.
type Record struct {
	core.Transaction
	Exported bool
}

// Repository persists transactions in SQLite or PostgreSQL.
type Repository struct {
	db      *sql.DB
	driver  string
	queries *Queries
}

// NewSQLiteRepository opens (creating if needed) the SQLite file at dbPath
// and migrates it.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(DriverSQLite, dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(DriverSQLite, dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return newRepository(db, DriverSQLite)
}

// NewPostgresRepository connects to the PostgreSQL database at databaseURL
// and migrates it.
func NewPostgresRepository(databaseURL string) (*Repository, error) {
	if err := RunMigrations(DriverPostgres, databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open(DriverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	return newRepository(db, DriverPostgres)
}

func newRepository(db *sql.DB, driver string) (*Repository, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{
		db:      db,
		driver:  driver,
		queries: newQueries(db, driver),
	}, nil
}

func (r *Repository) Driver() string {
	return r.driver
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create stores a transaction whose category has already been assigned and
// returns it with its new ID.
func (r *Repository) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	err := r.queries.queryRow(ctx, insertTransaction,
		tx.Amount.Cents, tx.Merchant, tx.Category, tx.Date.String(),
	).Scan(&tx.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", tx.ID,
		"merchant", tx.Merchant,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents,
		"date", tx.Date.String(),
		"driver", r.driver)

	return tx, nil
}

// Get returns the transaction with the given ID, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(r.queries.queryRow(ctx, getTransaction, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get transaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return rec, nil
}

// List returns transactions within the filter's inclusive bounds, ordered
// by date then ID.
func (r *Repository) List(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	var args []any
	if f.Start != nil {
		args = append(args, f.Start.String())
	}
	if f.End != nil {
		args = append(args, f.End.String())
	}

	rows, err := r.queries.query(ctx, listQuery(f.Start != nil, f.End != nil), args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, rec.Transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// CategoryTotals groups the transactions of month by category.
func (r *Repository) CategoryTotals(ctx context.Context, month core.Month) ([]core.CategoryTotal, error) {
	rows, err := r.queries.query(ctx, categoryTotals, month.Start().String(), month.End().String())
	if err != nil {
		return nil, fmt.Errorf("category totals for %s: %w", month, err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Count, &ct.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

// MonthlySummary aggregates month at the database level.
func (r *Repository) MonthlySummary(ctx context.Context, month core.Month) (core.MonthlySummary, error) {
	rows, err := r.CategoryTotals(ctx, month)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return core.NewMonthlySummary(month, rows), nil
}

// PendingExport returns up to limit IDs of transactions not yet exported,
// oldest first.
func (r *Repository) PendingExport(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.queries.query(ctx, pendingExport, limit)
	if err != nil {
		return nil, fmt.Errorf("pending export: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkExported flags a transaction as exported. Marking twice is a no-op.
func (r *Repository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.queries.exec(ctx, markExported, id); err != nil {
		return fmt.Errorf("mark transaction %d exported: %w", id, err)
	}
	slog.DebugContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

// ClaimExport atomically reserves an unexported row for the caller. It
// returns false when the row is already exported or another exporter holds
// a claim younger than ttl.
func (r *Repository) ClaimExport(ctx context.Context, id int64, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	res, err := r.queries.exec(ctx, claimExport, r.timeArg(now), id, r.timeArg(now.Add(-ttl)))
	if err != nil {
		return false, fmt.Errorf("claim transaction %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim transaction %d: %w", id, err)
	}
	return n == 1, nil
}

// ReleaseClaim drops the claim on a row that could not be exported so that
// the next sweep retries it.
func (r *Repository) ReleaseClaim(ctx context.Context, id int64) error {
	if _, err := r.queries.exec(ctx, releaseClaim, id); err != nil {
		return fmt.Errorf("release claim on transaction %d: %w", id, err)
	}
	return nil
}

// claimLayout sorts lexically, which is how SQLite compares TEXT claims.
const claimLayout = "2006-01-02 15:04:05.000000"

func (r *Repository) timeArg(t time.Time) any {
	if r.driver == DriverSQLite {
		return t.UTC().Format(claimLayout)
	}
	return t
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var (
		rec        Record
		occurredOn string
		exportedAt sql.NullString
	)
	if err := s.Scan(&rec.ID, &rec.Amount.Cents, &rec.Merchant, &rec.Category, &occurredOn, &exportedAt); err != nil {
		return Record{}, err
	}
	d, err := parseStoredDate(occurredOn)
	if err != nil {
		return Record{}, err
	}
	rec.Date = d
	rec.Exported = exportedAt.Valid
	return rec, nil
}

// parseStoredDate accepts the ISO text stored by SQLite as well as the
// RFC 3339 rendering database/sql produces for PostgreSQL DATE values.
func parseStoredDate(s string) (core.Date, error) {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	return core.ParseDate(s)
}
