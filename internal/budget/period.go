// Package budget turns a transaction ledger and budget definitions into
// per-category budget progress, rankings and chart-ready series.
//
// Every function is a pure transformation of its inputs: nothing is cached
// or mutated, so concurrent callers never interfere.
package budget

import (
	"fmt"
	"sort"
	"strconv"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

// Query scopes a report to a year, an optional month (0 = whole year) and an
// optional category.
type Query struct {
	Year     int    `json:"year"`
	Month    int    `json:"month,omitempty"`
	Category string `json:"category,omitempty"`
}

// Selection is the slice of the ledger and the period budgets a query applies to.
// Budgets holds at most one definition per category, already resolved for the period.
type Selection struct {
	Transactions []core.Transaction
	Budgets      []core.BudgetDefinition
}

func (q Query) Validate() error {
	if q.Year < 1000 || q.Year > 9999 {
		return fmt.Errorf("%w: year %d is not a 4-digit calendar year", core.ErrInvalidPeriod, q.Year)
	}
	if q.Month < 0 || q.Month > 12 {
		return fmt.Errorf("%w: month %d outside 1-12", core.ErrInvalidPeriod, q.Month)
	}
	return nil
}

// Key identifies the query for memoization.
func (q Query) Key() string {
	return strconv.Itoa(q.Year) + "-" + strconv.Itoa(q.Month) + "-" + q.Category
}

func (q Query) contains(d core.Date) bool {
	if d.Year() != q.Year {
		return false
	}
	return q.Month == 0 || d.Month() == q.Month
}

// SelectPeriod resolves a query into the matching transactions and the budget
// applicable to each category for that period.
//
// For a month query a definition applies when its interval contains the
// month's last day. For a year query every month contributes the amount of the
// definition applicable at its month end, or of the most recent one touching
// the month when none reaches its end, so mid-year budget changes are summed
// month by month and short-lived definitions still count.
func SelectPeriod(transactions []core.Transaction, budgets []core.BudgetDefinition, q Query) (Selection, error) {
	if err := q.Validate(); err != nil {
		return Selection{}, err
	}
	if err := ValidateLedger(transactions, budgets); err != nil {
		return Selection{}, err
	}

	sel := Selection{Transactions: make([]core.Transaction, 0, len(transactions))}
	for _, t := range transactions {
		if !q.contains(t.Date) {
			continue
		}
		if q.Category != "" && (t.Kind != core.Expense || t.Category != q.Category) {
			continue
		}
		sel.Transactions = append(sel.Transactions, t)
	}

	candidates := make([]core.BudgetDefinition, 0, len(budgets))
	for _, b := range budgets {
		if !b.Enabled {
			continue
		}
		if q.Category != "" && b.Category != q.Category {
			continue
		}
		candidates = append(candidates, b)
	}

	if q.Month != 0 {
		sel.Budgets = resolveAt(candidates, core.MonthEnd(q.Year, q.Month))
		return sel, nil
	}
	sel.Budgets = resolveYear(candidates, q.Year)
	return sel, nil
}

// ResolveBudgets picks, per category, the definition effective on d with the
// latest start date. Ties on start date go to the smallest ID.
func ResolveBudgets(budgets []core.BudgetDefinition, d core.Date) []core.BudgetDefinition {
	enabled := make([]core.BudgetDefinition, 0, len(budgets))
	for _, b := range budgets {
		if b.Enabled {
			enabled = append(enabled, b)
		}
	}
	return resolveAt(enabled, d)
}

func resolveAt(budgets []core.BudgetDefinition, d core.Date) []core.BudgetDefinition {
	best := map[string]core.BudgetDefinition{}
	for _, b := range budgets {
		if !b.EffectiveOn(d) {
			continue
		}
		cur, ok := best[b.Category]
		if !ok || moreRecent(b, cur) {
			best[b.Category] = b
		}
	}
	return sortedBudgets(best)
}

func resolveYear(budgets []core.BudgetDefinition, year int) []core.BudgetDefinition {
	from, to := core.NewDate(year, 1, 1), core.NewDate(year, 12, 31)
	overlapping := make([]core.BudgetDefinition, 0, len(budgets))
	for _, b := range budgets {
		if b.Overlaps(from, to) {
			overlapping = append(overlapping, b)
		}
	}

	totals := map[string]core.BudgetDefinition{}
	for _, b := range overlapping {
		if _, ok := totals[b.Category]; !ok {
			totals[b.Category] = core.BudgetDefinition{
				ID:        b.ID,
				Category:  b.Category,
				Amount:    decimal.Zero,
				StartDate: from,
				EndDate:   to,
				Enabled:   true,
			}
		}
	}
	for m := 1; m <= 12; m++ {
		for _, b := range resolveMonth(overlapping, year, m) {
			agg := totals[b.Category]
			agg.Amount = agg.Amount.Add(b.Amount)
			agg.ID = b.ID
			totals[b.Category] = agg
		}
	}
	return sortedBudgets(totals)
}

// resolveMonth picks the definition effective at the month end for each
// category. A category with none there falls back to the most recent
// definition touching any day of the month.
func resolveMonth(budgets []core.BudgetDefinition, year, month int) []core.BudgetDefinition {
	first, end := core.NewDate(year, month, 1), core.MonthEnd(year, month)
	best := map[string]core.BudgetDefinition{}
	for _, b := range resolveAt(budgets, end) {
		best[b.Category] = b
	}
	touched := map[string]core.BudgetDefinition{}
	for _, b := range budgets {
		if _, ok := best[b.Category]; ok || !b.Overlaps(first, end) {
			continue
		}
		cur, ok := touched[b.Category]
		if !ok || moreRecent(b, cur) {
			touched[b.Category] = b
		}
	}
	for c, b := range touched {
		best[c] = b
	}
	return sortedBudgets(best)
}

func moreRecent(a, b core.BudgetDefinition) bool {
	if !a.StartDate.Equal(b.StartDate.Time) {
		return a.StartDate.After(b.StartDate.Time)
	}
	return a.ID < b.ID
}

func sortedBudgets(m map[string]core.BudgetDefinition) []core.BudgetDefinition {
	out := make([]core.BudgetDefinition, 0, len(m))
	for _, b := range m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// ValidateLedger fails on the first malformed transaction or budget.
func ValidateLedger(transactions []core.Transaction, budgets []core.BudgetDefinition) error {
	for _, t := range transactions {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, b := range budgets {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}
