package budget

import (
	"errors"
	"fmt"
	"sort"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

// GroupKey selects the dimension transactions are bucketed by.
type GroupKey string

const (
	GroupByCategory GroupKey = "category"
	GroupByAccount  GroupKey = "account"
)

var ErrUnknownGroupKey = errors.New("unknown group key")

func (g GroupKey) Validate() error {
	switch g {
	case GroupByCategory, GroupByAccount:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownGroupKey, g)
}

// of returns the group value of t, or "" when t does not belong to any group
// (income has no category).
func (g GroupKey) of(t core.Transaction) string {
	if g == GroupByAccount {
		return t.Account
	}
	if t.Kind != core.Expense {
		return ""
	}
	return t.Category
}

// spend is t's contribution to a net-spend bucket. Income is stored as a
// positive inflow, so it reduces the spend of its account.
func spend(t core.Transaction) decimal.Decimal {
	if t.Kind == core.Income {
		return t.Amount.Neg()
	}
	return t.Amount
}

// AggregateByCategory sums net signed spend per category. Income is ignored.
// Sums are exact; callers round at output.
func AggregateByCategory(transactions []core.Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range transactions {
		c := GroupByCategory.of(t)
		if c == "" {
			continue
		}
		cur, ok := out[c]
		if !ok {
			cur = decimal.Zero
		}
		out[c] = cur.Add(t.Amount)
	}
	return out
}

type monthKey struct {
	year, month int
}

// AggregateByMonth buckets net spend per (year, month) and group value.
// Only groups present in the ledger appear; amounts are rounded to cents.
// Grouped by account, income counts negatively against its account.
func AggregateByMonth(transactions []core.Transaction, key GroupKey) ([]core.MonthSeries, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	buckets := map[monthKey]map[string]decimal.Decimal{}
	for _, t := range transactions {
		g := key.of(t)
		if g == "" {
			continue
		}
		mk := monthKey{t.Date.Year(), t.Date.Month()}
		sums, ok := buckets[mk]
		if !ok {
			sums = map[string]decimal.Decimal{}
			buckets[mk] = sums
		}
		cur, ok := sums[g]
		if !ok {
			cur = decimal.Zero
		}
		sums[g] = cur.Add(spend(t))
	}

	keys := make([]monthKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]core.MonthSeries, 0, len(keys))
	for _, k := range keys {
		sums := buckets[k]
		labels := sortedKeys(sums)
		data := make([]decimal.Decimal, len(labels))
		for i, l := range labels {
			data[i] = sums[l].Round(2)
		}
		out = append(out, core.MonthSeries{Year: k.year, Month: k.month, Labels: labels, Data: data})
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
