package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestTransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	in := []core.Transaction{
		{Date: core.NewDate(2024, 6, 20), Amount: decimal.RequireFromString("80.10"), Account: "Checking", Category: "Food", Kind: core.Expense},
		{ID: "a", Date: core.NewDate(2024, 6, 5), Amount: decimal.RequireFromString("-0.005"), Account: "Checking", Category: "Food", Kind: core.Expense},
		{ID: "old", Date: core.NewDate(2023, 12, 31), Amount: decimal.NewFromInt(10), Account: "Checking", Category: "Food", Kind: core.Expense},
		{ID: "pay", Date: core.NewDate(2025, 1, 1), Amount: decimal.NewFromInt(2000), Account: "Checking", Kind: core.Income},
	}
	var firstID string
	for i, tx := range in {
		saved, err := repo.AddTransaction(ctx, tx)
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		if i == 0 {
			firstID = saved.ID
		}
	}

	got, err := repo.ListTransactions(ctx, 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != firstID {
		t.Fatalf("unexpected 2024 ledger: %+v", got)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("-0.005")) {
		t.Fatalf("amounts must be stored exactly, got %s", got[0].Amount)
	}

	removed, err := repo.DeleteTransaction(ctx, "a")
	if err != nil || removed.Date != core.NewDate(2024, 6, 5) {
		t.Fatalf("delete: %+v err=%v", removed, err)
	}
	if _, err := repo.DeleteTransaction(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := repo.AddTransaction(ctx, core.Transaction{Date: core.NewDate(2024, 1, 1), Account: "x", Kind: "transfer"}); !errors.Is(err, core.ErrMalformedRecord) {
		t.Fatalf("expected malformed record, got %v", err)
	}
}

func TestBudgetsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.PutBudget(ctx, core.BudgetDefinition{
		Category:  "Food",
		Amount:    decimal.NewFromInt(300),
		StartDate: core.NewDate(2024, 1, 1),
		Enabled:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	b.EndDate = core.NewDate(2024, 12, 31)
	b.Enabled = false
	if _, err := repo.PutBudget(ctx, b); err != nil {
		t.Fatal(err)
	}

	list, err := repo.ListBudgets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Enabled || list[0].EndDate != core.NewDate(2024, 12, 31) {
		t.Fatalf("unexpected budgets: %+v", list)
	}

	if err := repo.DeleteBudget(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteBudget(ctx, b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.LatestSnapshot(ctx, 2024, 6); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, spent := range []int64{100, 200} {
		report := core.BudgetReport{Year: 2024, Month: 6, TotalSpent: decimal.NewFromInt(spent)}
		if err := repo.WriteSnapshot(ctx, report); err != nil {
			t.Fatal(err)
		}
	}
	got, err := repo.LatestSnapshot(ctx, 2024, 6)
	if err != nil {
		t.Fatal(err)
	}
	if !got.TotalSpent.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected latest snapshot, got %s", got.TotalSpent)
	}
}
