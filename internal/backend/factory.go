package backend

import (
	"context"
	"fmt"

	"txcat/internal/amqp"
	"txcat/internal/log"
	"txcat/internal/services"
	"txcat/internal/sheets"
	gsheet "txcat/internal/sheets/google"
	"txcat/internal/sheets/memory"
	"txcat/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) OpenRepository(ctx context.Context, config Config) (*storage.Repository, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo *storage.Repository
		err  error
	)
	switch config.Driver {
	case SQLiteDriver:
		repo, err = storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite repository", "db_path", config.SQLiteDBPath)
	case PostgresDriver:
		repo, err = storage.NewPostgresRepository(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized PostgreSQL repository")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", config.Driver)
	}
	return repo, nil
}

func (f *DefaultFactory) CreateService(ctx context.Context, config Config) (*Result, error) {
	repo, err := f.OpenRepository(ctx, config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional: the worker's sweep exports rows whose event was lost.
	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without export events", log.FieldError, err)
		} else {
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewTransactionService(repo, publisher, f.logger)

	f.logger.InfoContext(ctx, "Initialized transaction service",
		"driver", config.Driver.String(),
		"amqp_enabled", publisher != nil)

	return &Result{
		Service:    svc,
		Repository: repo,
		Cleanup:    svc.Close,
	}, nil
}

func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.TransactionExporter, error) {
	switch config.Export {
	case SheetsExport:
		cli, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
		return cli, nil
	case MemoryExport, "":
		f.logger.InfoContext(ctx, "Initialized in-memory exporter")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", config.Export)
	}
}
