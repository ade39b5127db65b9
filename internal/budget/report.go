package budget

import (
	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

// BuildReport runs the whole pipeline for q: select, aggregate, evaluate, rank.
// A category filter that matches nothing yields an empty report, not an error.
func BuildReport(transactions []core.Transaction, budgets []core.BudgetDefinition, q Query) (core.BudgetReport, error) {
	sel, err := SelectPeriod(transactions, budgets, q)
	if err != nil {
		return core.BudgetReport{}, err
	}

	summaries := Rank(Evaluate(AggregateByCategory(sel.Transactions), sel.Budgets))
	spent, budgeted := Totals(summaries)

	income := decimal.Zero
	for _, t := range sel.Transactions {
		if t.Kind == core.Income {
			income = income.Add(t.Amount)
		}
	}

	return core.BudgetReport{
		Year:        q.Year,
		Month:       q.Month,
		Category:    q.Category,
		TotalSpent:  spent,
		TotalBudget: budgeted,
		TotalIncome: income.Round(2),
		Summaries:   summaries,
	}, nil
}
