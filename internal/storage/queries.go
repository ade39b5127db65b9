package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns; dates and amounts are kept as text.
type (
	TransactionRow struct {
		ID          string
		Date        string
		Amount      string
		Account     string
		Category    string
		Description string
		Kind        string
	}

	BudgetRow struct {
		ID        string
		Category  string
		Amount    string
		StartDate string
		EndDate   sql.NullString
		Enabled   bool
	}
)

const insertTransaction = `-- name: InsertTransaction :exec
INSERT INTO transactions (id, date, amount, account, category, description, kind)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID, arg.Date, arg.Amount, arg.Account, arg.Category, arg.Description, arg.Kind)
	return err
}

const listTransactionsBetween = `-- name: ListTransactionsBetween :many
SELECT id, date, amount, account, category, description, kind
FROM transactions
WHERE date >= ? AND date < ?
ORDER BY date, id`

func (q *Queries) ListTransactionsBetween(ctx context.Context, from, to string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsBetween, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.Date, &i.Amount, &i.Account, &i.Category, &i.Description, &i.Kind); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `-- name: GetTransaction :one
SELECT id, date, amount, account, category, description, kind
FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.Date, &i.Amount, &i.Account, &i.Category, &i.Description, &i.Kind)
	return i, err
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertBudget = `-- name: UpsertBudget :exec
INSERT INTO budgets (id, category, amount, start_date, end_date, enabled)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    category = excluded.category,
    amount = excluded.amount,
    start_date = excluded.start_date,
    end_date = excluded.end_date,
    enabled = excluded.enabled,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertBudget(ctx context.Context, arg BudgetRow) error {
	_, err := q.db.ExecContext(ctx, upsertBudget,
		arg.ID, arg.Category, arg.Amount, arg.StartDate, arg.EndDate, arg.Enabled)
	return err
}

const listBudgets = `-- name: ListBudgets :many
SELECT id, category, amount, start_date, end_date, enabled
FROM budgets
ORDER BY id`

func (q *Queries) ListBudgets(ctx context.Context) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		var i BudgetRow
		if err := rows.Scan(&i.ID, &i.Category, &i.Amount, &i.StartDate, &i.EndDate, &i.Enabled); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteBudget = `-- name: DeleteBudget :execrows
DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertSnapshot = `-- name: InsertSnapshot :exec
INSERT INTO report_snapshots (year, month, payload) VALUES (?, ?, ?)`

func (q *Queries) InsertSnapshot(ctx context.Context, year, month int64, payload string) error {
	_, err := q.db.ExecContext(ctx, insertSnapshot, year, month, payload)
	return err
}

const latestSnapshot = `-- name: LatestSnapshot :one
SELECT payload FROM report_snapshots
WHERE year = ? AND month = ?
ORDER BY id DESC LIMIT 1`

func (q *Queries) LatestSnapshot(ctx context.Context, year, month int64) (string, error) {
	row := q.db.QueryRowContext(ctx, latestSnapshot, year, month)
	var payload string
	err := row.Scan(&payload)
	return payload, err
}
