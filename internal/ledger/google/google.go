package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"budgetlens/internal/core"
	"budgetlens/internal/ledger"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ensure interface conformance
var (
	_ ledger.Store          = (*Client)(nil)
	_ ledger.SnapshotWriter = (*Client)(nil)
)

// Config names the spreadsheet and its tabs. Snapshot tabs are per year:
// "<year> <SnapshotSheet>".
type Config struct {
	SpreadsheetID   string
	LedgerSheet     string
	BudgetSheet     string
	SnapshotSheet   string
	CredentialsJSON string
	CredentialsFile string
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.LedgerSheet) == "" {
		c.LedgerSheet = "Transactions"
	}
	if strings.TrimSpace(c.BudgetSheet) == "" {
		c.BudgetSheet = "Budgets"
	}
	if strings.TrimSpace(c.SnapshotSheet) == "" {
		c.SnapshotSheet = "Snapshot"
	}
	return c
}

type Client struct {
	svc *gsheet.Service
	cfg Config
	now func() time.Time
}

// New creates a Sheets client authenticated with a service account. Extra
// options are passed to the Sheets service (endpoint overrides in tests).
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	cfg = cfg.withDefaults()
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID,
		"ledger_sheet", cfg.LedgerSheet,
		"budget_sheet", cfg.BudgetSheet)
	return &Client{svc: svc, cfg: cfg, now: time.Now}, nil
}

// credentials resolves service account JSON from the config, falling back to
// GOOGLE_APPLICATION_CREDENTIALS.
func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (c *Client) read(ctx context.Context, rng string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.cfg.SpreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) ListTransactions(ctx context.Context, year int) ([]core.Transaction, error) {
	values, err := c.read(ctx, fmt.Sprintf("%s!A:G", c.cfg.LedgerSheet))
	if err != nil {
		return nil, err
	}
	all, err := parseTransactions(values)
	if err != nil {
		return nil, err
	}
	out := make([]core.Transaction, 0, len(all))
	for _, t := range all {
		if t.Date.Year() == year {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *Client) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	rng := fmt.Sprintf("%s!A:G", c.cfg.LedgerSheet)
	vr := &gsheet.ValueRange{Values: [][]interface{}{transactionRow(t)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.cfg.SpreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append to %s: %w", c.cfg.LedgerSheet, err)
	}
	return t, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) (core.Transaction, error) {
	values, err := c.read(ctx, fmt.Sprintf("%s!A:G", c.cfg.LedgerSheet))
	if err != nil {
		return core.Transaction{}, err
	}
	row := findRow(values, id)
	if row < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	t, err := parseTransaction(toStrings(values[row]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %d: %w", row+1, err)
	}
	if err := c.deleteRow(ctx, c.cfg.LedgerSheet, row); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.BudgetDefinition, error) {
	values, err := c.read(ctx, fmt.Sprintf("%s!A:F", c.cfg.BudgetSheet))
	if err != nil {
		return nil, err
	}
	return parseBudgets(values)
}

func (c *Client) PutBudget(ctx context.Context, b core.BudgetDefinition) (core.BudgetDefinition, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.BudgetDefinition{}, err
	}
	values, err := c.read(ctx, fmt.Sprintf("%s!A:A", c.cfg.BudgetSheet))
	if err != nil {
		return core.BudgetDefinition{}, err
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{budgetRow(b)}}

	if row := findRow(values, b.ID); row >= 0 {
		rng := fmt.Sprintf("%s!A%d:F%d", c.cfg.BudgetSheet, row+1, row+1)
		_, err = c.svc.Spreadsheets.Values.Update(c.cfg.SpreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return core.BudgetDefinition{}, fmt.Errorf("update %s: %w", rng, err)
		}
		return b, nil
	}

	rng := fmt.Sprintf("%s!A:F", c.cfg.BudgetSheet)
	_, err = c.svc.Spreadsheets.Values.Append(c.cfg.SpreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return core.BudgetDefinition{}, fmt.Errorf("append to %s: %w", c.cfg.BudgetSheet, err)
	}
	return b, nil
}

func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	values, err := c.read(ctx, fmt.Sprintf("%s!A:A", c.cfg.BudgetSheet))
	if err != nil {
		return err
	}
	row := findRow(values, id)
	if row < 0 {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	return c.deleteRow(ctx, c.cfg.BudgetSheet, row)
}

// WriteSnapshot appends one row per category to the year's snapshot tab.
func (c *Client) WriteSnapshot(ctx context.Context, report core.BudgetReport) error {
	sheet := yearPrefixedName(c.cfg.SnapshotSheet, report.Year)
	rng := fmt.Sprintf("%s!A:I", sheet)
	vr := &gsheet.ValueRange{Values: snapshotRows(report, c.now())}
	_, err := c.svc.Spreadsheets.Values.Append(c.cfg.SpreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append snapshot to %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Snapshot written", "sheet", sheet, "rows", len(vr.Values))
	return nil
}

// deleteRow removes the zero-based row from the named tab.
func (c *Client) deleteRow(ctx context.Context, sheet string, row int) error {
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row),
			EndIndex:   int64(row + 1),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", row+1, sheet, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.cfg.SpreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", title)
}
