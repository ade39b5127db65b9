package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"budgetlens/internal/core"
	"budgetlens/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var (
	_ ledger.Store          = (*SQLiteRepository)(nil)
	_ ledger.SnapshotWriter = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, year int) ([]core.Transaction, error) {
	from := core.NewDate(year, 1, 1).String()
	to := core.NewDate(year+1, 1, 1).String()
	rows, err := r.queries.ListTransactionsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := r.queries.InsertTransaction(ctx, fromTransaction(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"date", t.Date.String(),
		"amount", t.Amount.String(),
		"category", t.Category)
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	row, err := q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if _, err := q.DeleteTransaction(ctx, id); err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return toTransaction(row)
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.BudgetDefinition, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.BudgetDefinition, 0, len(rows))
	for _, row := range rows {
		b, err := toBudget(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *SQLiteRepository) PutBudget(ctx context.Context, b core.BudgetDefinition) (core.BudgetDefinition, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.BudgetDefinition{}, err
	}
	if err := r.queries.UpsertBudget(ctx, fromBudget(b)); err != nil {
		return core.BudgetDefinition{}, fmt.Errorf("upsert budget: %w", err)
	}
	slog.InfoContext(ctx, "Budget saved to SQLite", "id", b.ID, "category", b.Category, "amount", b.Amount.String())
	return b, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) error {
	n, err := r.queries.DeleteBudget(ctx, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// WriteSnapshot stores the report as JSON in report_snapshots.
func (r *SQLiteRepository) WriteSnapshot(ctx context.Context, report core.BudgetReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := r.queries.InsertSnapshot(ctx, int64(report.Year), int64(report.Month), string(payload)); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Report snapshot saved", "year", report.Year, "month", report.Month, "categories", len(report.Summaries))
	return nil
}

// LatestSnapshot returns the most recent snapshot for the period.
func (r *SQLiteRepository) LatestSnapshot(ctx context.Context, year, month int) (core.BudgetReport, error) {
	payload, err := r.queries.LatestSnapshot(ctx, int64(year), int64(month))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetReport{}, fmt.Errorf("snapshot %d-%02d: %w", year, month, core.ErrNotFound)
	}
	if err != nil {
		return core.BudgetReport{}, fmt.Errorf("get snapshot: %w", err)
	}
	var report core.BudgetReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return core.BudgetReport{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return report, nil
}

func fromTransaction(t core.Transaction) TransactionRow {
	return TransactionRow{
		ID:          t.ID,
		Date:        t.Date.String(),
		Amount:      t.Amount.String(),
		Account:     t.Account,
		Category:    t.Category,
		Description: t.Description,
		Kind:        string(t.Kind),
	}
}

func toTransaction(row TransactionRow) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s: date %q", core.ErrMalformedRecord, row.ID, row.Date)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s: amount %q", core.ErrMalformedRecord, row.ID, row.Amount)
	}
	return core.Transaction{
		ID:          row.ID,
		Date:        date,
		Amount:      amount,
		Account:     row.Account,
		Category:    row.Category,
		Description: row.Description,
		Kind:        core.Kind(row.Kind),
	}, nil
}

func fromBudget(b core.BudgetDefinition) BudgetRow {
	return BudgetRow{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount.String(),
		StartDate: b.StartDate.String(),
		EndDate:   sql.NullString{String: b.EndDate.String(), Valid: !b.EndDate.IsEmpty()},
		Enabled:   b.Enabled,
	}
}

func toBudget(row BudgetRow) (core.BudgetDefinition, error) {
	malformed := func(field, v string) error {
		return fmt.Errorf("%w: budget %s: %s %s", core.ErrMalformedRecord, row.ID, field, strconv.Quote(v))
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.BudgetDefinition{}, malformed("amount", row.Amount)
	}
	start, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.BudgetDefinition{}, malformed("start", row.StartDate)
	}
	var end core.Date
	if row.EndDate.Valid && row.EndDate.String != "" {
		if end, err = core.ParseDate(row.EndDate.String); err != nil {
			return core.BudgetDefinition{}, malformed("end", row.EndDate.String)
		}
	}
	return core.BudgetDefinition{
		ID:        row.ID,
		Category:  row.Category,
		Amount:    amount,
		StartDate: start,
		EndDate:   end,
		Enabled:   row.Enabled,
	}, nil
}
