package ledger

import (
	"context"

	"budgetlens/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionLister returns the ledger entries dated in year.
	TransactionLister interface {
		ListTransactions(ctx context.Context, year int) ([]core.Transaction, error)
	}

	// TransactionWriter records and removes ledger entries. AddTransaction
	// assigns an ID when t has none and returns the stored entry.
	TransactionWriter interface {
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// DeleteTransaction returns the removed entry, or core.ErrNotFound.
		DeleteTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context) ([]core.BudgetDefinition, error)
		// PutBudget inserts or replaces the definition with b.ID.
		PutBudget(ctx context.Context, b core.BudgetDefinition) (core.BudgetDefinition, error)
		DeleteBudget(ctx context.Context, id string) error
	}

	// SnapshotWriter persists a computed report outside the ledger.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, report core.BudgetReport) error
	}

	// Store is everything a ledger backend provides.
	Store interface {
		TransactionLister
		TransactionWriter
		BudgetStore
	}
)
