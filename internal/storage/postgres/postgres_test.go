package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

func TestSchemaStatements(t *testing.T) {
	stmts := splitStatements(schema)
	if len(stmts) != 4 {
		t.Fatalf("expected 4 schema statements, got %d", len(stmts))
	}
	for _, s := range stmts {
		if !strings.Contains(s, "IF NOT EXISTS") {
			t.Errorf("schema statement must be idempotent: %q", s)
		}
	}
}

func TestToDateDropsClockAndZone(t *testing.T) {
	in := time.Date(2024, 6, 5, 23, 30, 0, 0, time.FixedZone("x", 3600))
	if got := toDate(in); got != core.NewDate(2024, 6, 5) {
		t.Fatalf("toDate = %v", got)
	}
}

// TestStoreIntegration runs against a live database when POSTGRES_TEST_URL is set.
func TestStoreIntegration(t *testing.T) {
	url := os.Getenv("POSTGRES_TEST_URL")
	if url == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	ctx := context.Background()
	s, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()

	tx, err := s.AddTransaction(ctx, core.Transaction{
		Date:     core.NewDate(1999, 3, 4),
		Amount:   decimal.RequireFromString("12.34"),
		Account:  "Checking",
		Category: "Food",
		Kind:     core.Expense,
	})
	if err != nil {
		t.Fatal(err)
	}
	list, err := s.ListTransactions(ctx, 1999)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, got := range list {
		if got.ID == tx.ID && got.Amount.Equal(tx.Amount) && got.Date == tx.Date {
			found = true
		}
	}
	if !found {
		t.Fatalf("inserted transaction not listed")
	}
	if _, err := s.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.DeleteTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	b, err := s.PutBudget(ctx, core.BudgetDefinition{Category: "Food", Amount: decimal.NewFromInt(300), StartDate: core.NewDate(1999, 1, 1), Enabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteBudget(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
}
