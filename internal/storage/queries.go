package storage

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
)

const insertTransaction = `
INSERT INTO transactions (amount_cents, merchant, category, occurred_on)
VALUES (?, ?, ?, ?)
RETURNING id`

const selectTransactionColumns = `
SELECT id, amount_cents, merchant, category, occurred_on, exported_at
FROM transactions`

const getTransaction = selectTransactionColumns + `
WHERE id = ?`

const categoryTotals = `
SELECT category, COUNT(*), COALESCE(SUM(amount_cents), 0)
FROM transactions
WHERE occurred_on >= ? AND occurred_on < ?
GROUP BY category
ORDER BY category`

const pendingExport = `
SELECT id
FROM transactions
WHERE exported_at IS NULL
ORDER BY id
LIMIT ?`

// claimExport takes the row for one exporter. A claim older than the cutoff
// is assumed abandoned and may be taken again.
const claimExport = `
UPDATE transactions
SET claimed_at = ?
WHERE id = ? AND exported_at IS NULL AND (claimed_at IS NULL OR claimed_at < ?)`

const releaseClaim = `
UPDATE transactions
SET claimed_at = NULL
WHERE id = ? AND exported_at IS NULL`

const markExported = `
UPDATE transactions
SET exported_at = CURRENT_TIMESTAMP
WHERE id = ? AND exported_at IS NULL`

// dbtx is satisfied by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries runs the repository's SQL, rewriting '?' placeholders into the
// driver's bind style.
type Queries struct {
	db     dbtx
	driver string
}

func newQueries(db dbtx, driver string) *Queries {
	return &Queries{db: db, driver: driver}
}

func (q *Queries) rebind(query string) string {
	if q.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, q.rebind(query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.rebind(query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.rebind(query), args...)
}

// listQuery builds the listing statement for the given optional bounds.
func listQuery(hasStart, hasEnd bool) string {
	var where []string
	if hasStart {
		where = append(where, "occurred_on >= ?")
	}
	if hasEnd {
		where = append(where, "occurred_on <= ?")
	}
	q := selectTransactionColumns
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	return q + "\nORDER BY occurred_on, id"
}
