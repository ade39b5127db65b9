package budget

import (
	"fmt"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate compares each category's net spend with its budget. Categories
// present in either input appear exactly once, ordered by name. Spent is
// rounded to cents; Percent is an integer rounded half away from zero.
//
// budgets should hold at most one definition per category (see SelectPeriod);
// when it holds more, the most recently started one wins.
func Evaluate(spent map[string]decimal.Decimal, budgets []core.BudgetDefinition) []core.CategorySummary {
	byCategory := make(map[string]core.BudgetDefinition, len(budgets))
	for _, b := range budgets {
		cur, ok := byCategory[b.Category]
		if !ok || moreRecent(b, cur) {
			byCategory[b.Category] = b
		}
	}

	names := make(map[string]struct{}, len(spent)+len(byCategory))
	for c := range spent {
		names[c] = struct{}{}
	}
	for c := range byCategory {
		names[c] = struct{}{}
	}
	categories := sortedKeys(names)

	out := make([]core.CategorySummary, 0, len(categories))
	for _, c := range categories {
		s, ok := spent[c]
		if !ok {
			s = decimal.Zero
		}
		b, hasBudget := byCategory[c]
		out = append(out, evaluateOne(c, s, b, hasBudget))
	}
	return out
}

func evaluateOne(category string, spent decimal.Decimal, b core.BudgetDefinition, hasBudget bool) core.CategorySummary {
	sum := core.CategorySummary{Category: category, Spent: spent.Round(2)}
	if !hasBudget {
		sum.Status = core.StatusNoBudget
		sum.Message = "No budget set"
		return sum
	}

	amount := b.Amount.Round(2)
	sum.Budget = &amount
	remaining := amount.Sub(sum.Spent)
	sum.Remaining = &remaining

	if b.Amount.IsZero() {
		sum.Status = core.StatusZeroBudget
		sum.Message = "Budget is zero"
		return sum
	}

	pct := int(PercentUsed(spent, b.Amount))
	sum.Percent = &pct

	switch spent.Cmp(b.Amount.Abs()) {
	case -1:
		sum.Status = core.StatusUnder
		sum.Message = fmt.Sprintf("%d%% of budget used, %s left", pct, core.FormatAmount(remaining))
	case 0:
		sum.Status = core.StatusAt
		sum.Message = fmt.Sprintf("%d%% of budget used", pct)
	default:
		sum.Status = core.StatusOver
		sum.Message = fmt.Sprintf("Over budget by %s", core.FormatAmount(remaining.Neg()))
	}
	return sum
}

// PercentUsed returns round(spent / |budget| * 100). The caller guarantees a
// non-zero budget.
func PercentUsed(spent, budget decimal.Decimal) int64 {
	return spent.Mul(hundred).Div(budget.Abs()).Round(0).IntPart()
}

// Totals sums spend and budget over summaries, skipping categories without budget
// for the budget total.
func Totals(summaries []core.CategorySummary) (spent, budgeted decimal.Decimal) {
	spent, budgeted = decimal.Zero, decimal.Zero
	for _, s := range summaries {
		spent = spent.Add(s.Spent)
		if s.Budget != nil {
			budgeted = budgeted.Add(*s.Budget)
		}
	}
	return spent, budgeted
}
