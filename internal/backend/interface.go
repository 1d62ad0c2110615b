package backend

import (
	"context"

	"txcat/internal/services"
	"txcat/internal/sheets"
	"txcat/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the wired transaction service and its cleanup function
type Result struct {
	Service    *services.TransactionService
	Repository *storage.Repository
	Cleanup    CleanupFunc
}

// Factory creates the storage, messaging and export components from
// configuration.
type Factory interface {
	// OpenRepository opens and migrates the configured database.
	OpenRepository(ctx context.Context, config Config) (*storage.Repository, error)

	// CreateService wires the repository and, when reachable, the AMQP
	// publisher into a TransactionService.
	CreateService(ctx context.Context, config Config) (*Result, error)

	// CreateExporter builds the spreadsheet exporter used by the worker.
	CreateExporter(ctx context.Context, config Config) (sheets.TransactionExporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Driver StorageDriver

	SQLiteDBPath string
	DatabaseURL  string

	// AMQP is optional for the API server; an empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	Export                   ExportTarget
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// StorageDriver selects the SQL database.
type StorageDriver string

const (
	SQLiteDriver   StorageDriver = storage.DriverSQLite
	PostgresDriver StorageDriver = storage.DriverPostgres
)

func (d StorageDriver) String() string {
	return string(d)
}

// IsValid returns true if the driver is supported
func (d StorageDriver) IsValid() bool {
	switch d {
	case SQLiteDriver, PostgresDriver:
		return true
	default:
		return false
	}
}

// ExportTarget selects where the worker writes exported rows.
type ExportTarget string

const (
	MemoryExport ExportTarget = "memory"
	SheetsExport ExportTarget = "sheets"
)

func (t ExportTarget) String() string {
	return string(t)
}

func (t ExportTarget) IsValid() bool {
	switch t {
	case MemoryExport, SheetsExport:
		return true
	default:
		return false
	}
}
