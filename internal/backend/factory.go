package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"budgetlens/internal/amqp"
	"budgetlens/internal/ledger"
	gsheet "budgetlens/internal/ledger/google"
	"budgetlens/internal/ledger/memory"
	"budgetlens/internal/storage"
	"budgetlens/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// storeWriter is what every ledger adapter provides.
type storeWriter interface {
	ledger.Store
	ledger.SnapshotWriter
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storeWriter
		err   error
	)
	switch config.Type {
	case MemoryBackend:
		store, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		store, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		store, err = f.createPostgresBackend(ctx, config)
	case SheetsBackend:
		store, err = f.createSheetsBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	res := &BackendResult{
		Store:     store,
		Snapshots: f.snapshotSink(ctx, config, store),
		AMQP:      f.createAMQPClient(config),
	}
	res.Cleanup = func() error {
		var errs []error
		if res.AMQP != nil {
			if err := res.AMQP.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("store: %w", err))
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (storeWriter, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store, err := memory.NewFromFiles(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return store, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (storeWriter, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (storeWriter, error) {
	store, err := postgres.Connect(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")
	return store, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (storeWriter, error) {
	cli, err := gsheet.New(ctx, sheetsConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend")
	return cli, nil
}

// snapshotSink sends snapshots to the spreadsheet when one is configured for a
// non-sheets backend, and to the ledger store otherwise.
func (f *DefaultFactory) snapshotSink(ctx context.Context, config Config, store storeWriter) ledger.SnapshotWriter {
	if config.Type == SheetsBackend || config.GoogleSpreadsheetID == "" {
		return store
	}
	cli, err := gsheet.New(ctx, sheetsConfig(config))
	if err != nil {
		f.logger.Warn("Failed to initialize snapshot spreadsheet, writing snapshots to the ledger store", "error", err)
		return store
	}
	f.logger.Info("Snapshots go to Google Sheets", "sheet", config.GoogleSnapshotSheet)
	return cli
}

// createAMQPClient connects to the broker when configured. Failures are
// logged and the backend keeps working without events.
func (f *DefaultFactory) createAMQPClient(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

func sheetsConfig(config Config) gsheet.Config {
	return gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		LedgerSheet:     config.GoogleLedgerSheet,
		BudgetSheet:     config.GoogleBudgetSheet,
		SnapshotSheet:   config.GoogleSnapshotSheet,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}
}
