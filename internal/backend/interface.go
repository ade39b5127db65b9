package backend

import (
	"context"

	"budgetlens/internal/amqp"
	"budgetlens/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger store, where report snapshots go, the
// optional AMQP client and a cleanup function.
type BackendResult struct {
	Store     ledger.Store
	Snapshots ledger.SnapshotWriter
	// AMQP is nil when no broker is configured or it could not be reached.
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string

	// Optional AMQP events, for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets: the ledger for the sheets backend, and the snapshot
	// sink for any backend when a spreadsheet is configured.
	GoogleSpreadsheetID      string
	GoogleLedgerSheet        string
	GoogleBudgetSheet        string
	GoogleSnapshotSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	SheetsBackend   BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
