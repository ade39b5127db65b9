// Package postgres stores the ledger in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgetlens/internal/core"
	"budgetlens/internal/ledger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

var (
	_ ledger.Store          = (*Store)(nil)
	_ ledger.SnapshotWriter = (*Store)(nil)
)

type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, checks it and ensures the schema exists.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func splitStatements(sql string) []string {
	var out []string
	for _, part := range strings.Split(sql, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ListTransactions(ctx context.Context, year int) ([]core.Transaction, error) {
	query := `
		SELECT id, date, amount::text, account, category, description, kind
		FROM transactions
		WHERE date >= $1 AND date < $2
		ORDER BY date, id
	`
	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := s.pool.Query(ctx, query, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	query := `
		INSERT INTO transactions (id, date, amount, account, category, description, kind)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
	`
	_, err := s.pool.Exec(ctx, query, t.ID, t.Date.Time, t.Amount.String(), t.Account, t.Category, t.Description, string(t.Kind))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to Postgres", "id", t.ID, "date", t.Date.String())
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	query := `
		DELETE FROM transactions WHERE id = $1
		RETURNING id, date, amount::text, account, category, description, kind
	`
	t, err := scanTransaction(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListBudgets(ctx context.Context) ([]core.BudgetDefinition, error) {
	query := `
		SELECT id, category, amount::text, start_date, end_date, enabled
		FROM budgets ORDER BY id
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetDefinition
	for rows.Next() {
		var (
			b      core.BudgetDefinition
			amount string
			start  time.Time
			end    *time.Time
		)
		if err := rows.Scan(&b.ID, &b.Category, &amount, &start, &end, &b.Enabled); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: budget %s: amount %q", core.ErrMalformedRecord, b.ID, amount)
		}
		b.StartDate = toDate(start)
		if end != nil {
			b.EndDate = toDate(*end)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) PutBudget(ctx context.Context, b core.BudgetDefinition) (core.BudgetDefinition, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.BudgetDefinition{}, err
	}
	var end *time.Time
	if !b.EndDate.IsEmpty() {
		e := b.EndDate.Time
		end = &e
	}
	query := `
		INSERT INTO budgets (id, category, amount, start_date, end_date, enabled)
		VALUES ($1, $2, $3::numeric, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			amount = EXCLUDED.amount,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			enabled = EXCLUDED.enabled,
			updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, b.ID, b.Category, b.Amount.String(), b.StartDate.Time, end, b.Enabled); err != nil {
		return core.BudgetDefinition{}, fmt.Errorf("upsert budget: %w", err)
	}
	return b, nil
}

func (s *Store) DeleteBudget(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) WriteSnapshot(ctx context.Context, report core.BudgetReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO report_snapshots (year, month, payload) VALUES ($1, $2, $3::jsonb)`,
		report.Year, report.Month, string(payload))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t      core.Transaction
		date   time.Time
		amount string
		kind   string
	)
	if err := row.Scan(&t.ID, &date, &amount, &t.Account, &t.Category, &t.Description, &kind); err != nil {
		return core.Transaction{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s: amount %q", core.ErrMalformedRecord, t.ID, amount)
	}
	t.Date = toDate(date)
	t.Amount = d
	t.Kind = core.Kind(kind)
	return t, nil
}

func toDate(t time.Time) core.Date {
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}
