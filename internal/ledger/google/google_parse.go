package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

// Ledger tab columns: ID | Date | Amount | Account | Category | Description | Kind.
// Budget tab columns: ID | Category | Amount | Start | End | Enabled.
// A first row whose ID cell reads "ID" is treated as a header.

func parseTransactions(values [][]interface{}) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(values))
	for i, raw := range values {
		cols := toStrings(raw)
		if skipRow(i, cols) {
			continue
		}
		t, err := parseTransaction(cols)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func parseTransaction(cols []string) (core.Transaction, error) {
	id := safeGet(cols, 0)
	date, err := core.ParseDate(safeGet(cols, 1))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s: date %q", core.ErrMalformedRecord, id, safeGet(cols, 1))
	}
	amount, err := core.ParseAmount(safeGet(cols, 2))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s: %v", core.ErrMalformedRecord, id, err)
	}
	kind := core.Kind(strings.ToLower(safeGet(cols, 6)))
	if kind == "" {
		kind = core.Expense
	}
	t := core.Transaction{
		ID:          id,
		Date:        date,
		Amount:      amount,
		Account:     safeGet(cols, 3),
		Category:    safeGet(cols, 4),
		Description: safeGet(cols, 5),
		Kind:        kind,
	}
	return t, t.Validate()
}

func parseBudgets(values [][]interface{}) ([]core.BudgetDefinition, error) {
	out := make([]core.BudgetDefinition, 0, len(values))
	for i, raw := range values {
		cols := toStrings(raw)
		if skipRow(i, cols) {
			continue
		}
		b, err := parseBudget(cols)
		if err != nil {
			return nil, fmt.Errorf("budget row %d: %w", i+1, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func parseBudget(cols []string) (core.BudgetDefinition, error) {
	id := safeGet(cols, 0)
	amount, err := core.ParseAmount(safeGet(cols, 2))
	if err != nil {
		return core.BudgetDefinition{}, fmt.Errorf("%w: budget %s: %v", core.ErrMalformedRecord, id, err)
	}
	start, err := core.ParseDate(safeGet(cols, 3))
	if err != nil {
		return core.BudgetDefinition{}, fmt.Errorf("%w: budget %s: start %q", core.ErrMalformedRecord, id, safeGet(cols, 3))
	}
	var end core.Date
	if s := safeGet(cols, 4); s != "" {
		if end, err = core.ParseDate(s); err != nil {
			return core.BudgetDefinition{}, fmt.Errorf("%w: budget %s: end %q", core.ErrMalformedRecord, id, s)
		}
	}
	b := core.BudgetDefinition{
		ID:        id,
		Category:  safeGet(cols, 1),
		Amount:    amount,
		StartDate: start,
		EndDate:   end,
		Enabled:   parseEnabled(safeGet(cols, 5)),
	}
	return b, b.Validate()
}

// parseEnabled treats a blank cell as enabled.
func parseEnabled(s string) bool {
	if s == "" {
		return true
	}
	v, err := strconv.ParseBool(strings.ToLower(s))
	return err != nil || v
}

func transactionRow(t core.Transaction) []interface{} {
	return []interface{}{t.ID, t.Date.String(), core.FormatAmount(t.Amount), t.Account, t.Category, t.Description, string(t.Kind)}
}

func budgetRow(b core.BudgetDefinition) []interface{} {
	return []interface{}{b.ID, b.Category, core.FormatAmount(b.Amount), b.StartDate.String(), b.EndDate.String(), strings.ToUpper(strconv.FormatBool(b.Enabled))}
}

// snapshotRows renders a report as Year | Month | Category | Spent | Budget |
// Percent | Status | Rank | Written rows.
func snapshotRows(r core.BudgetReport, at time.Time) [][]interface{} {
	written := at.UTC().Format(time.RFC3339)
	rows := make([][]interface{}, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		rows = append(rows, []interface{}{
			r.Year, r.Month, s.Category, core.FormatAmount(s.Spent),
			optionalAmount(s.Budget), optionalPercent(s.Percent),
			string(s.Status), s.Rank, written,
		})
	}
	return rows
}

func optionalAmount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return core.FormatAmount(*d)
}

func optionalPercent(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func skipRow(i int, cols []string) bool {
	if i == 0 && strings.EqualFold(safeGet(cols, 0), "id") {
		return true
	}
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

// findRow returns the zero-based index of the row whose first cell is id, or -1.
func findRow(values [][]interface{}, id string) int {
	if id == "" {
		return -1
	}
	for i, raw := range values {
		if len(raw) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(raw[0])) == id {
			return i
		}
	}
	return -1
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
