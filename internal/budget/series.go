package budget

import (
	"errors"
	"fmt"
	"sort"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
)

// Axis selects what the labels of a chart series enumerate.
type Axis string

const (
	// AxisMonth labels Jan..Dec with one dataset per group value.
	AxisMonth Axis = "month"
	// AxisGroup labels group values with one dataset per month.
	AxisGroup Axis = "group"
)

var ErrUnknownAxis = errors.New("unknown axis")

// MonthLabels are the calendar-ordered month names used as chart labels.
var MonthLabels = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

func (a Axis) Validate() error {
	switch a {
	case AxisMonth, AxisGroup:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownAxis, a)
}

// BuildMonthlySeries builds a 12-month stacked series for year, one bucket per
// (group value, month) holding the net spend, with income negated. Only group values and
// months observed in the year get a dataset or label.
func BuildMonthlySeries(transactions []core.Transaction, year int, key GroupKey, axis Axis) (core.Series, error) {
	if err := (Query{Year: year}).Validate(); err != nil {
		return core.Series{}, err
	}
	if err := key.Validate(); err != nil {
		return core.Series{}, err
	}
	if err := axis.Validate(); err != nil {
		return core.Series{}, err
	}
	if err := ValidateLedger(transactions, nil); err != nil {
		return core.Series{}, err
	}

	sums := map[string]*[12]decimal.Decimal{}
	var seenMonth [12]bool
	for _, t := range transactions {
		if t.Date.Year() != year {
			continue
		}
		g := key.of(t)
		if g == "" {
			continue
		}
		row, ok := sums[g]
		if !ok {
			row = &[12]decimal.Decimal{}
			for i := range row {
				row[i] = decimal.Zero
			}
			sums[g] = row
		}
		m := t.Date.Month() - 1
		row[m] = row[m].Add(spend(t))
		seenMonth[m] = true
	}
	groups := sortedKeys(sums)

	if axis == AxisMonth {
		out := core.Series{Labels: append([]string(nil), MonthLabels[:]...), Datasets: make([]core.Dataset, 0, len(groups))}
		for _, g := range groups {
			data := make([]float64, 12)
			for m, v := range sums[g] {
				data[m] = toFloat(v)
			}
			out.Datasets = append(out.Datasets, core.Dataset{Label: g, Data: data})
		}
		return out, nil
	}

	out := core.Series{Labels: groups, Datasets: []core.Dataset{}}
	for m := 0; m < 12; m++ {
		if !seenMonth[m] {
			continue
		}
		data := make([]float64, len(groups))
		for i, g := range groups {
			data[i] = toFloat(sums[g][m])
		}
		out.Datasets = append(out.Datasets, core.Dataset{Label: MonthLabels[m], Data: data})
	}
	return out, nil
}

func toFloat(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// RowFilter selects transactions for a drill-down table. Month 0 means the
// whole year; an empty Label matches every transaction. Group defaults to
// category.
type RowFilter struct {
	Year  int
	Month int
	Label string
	Group GroupKey
}

// BuildDetailRows flattens the transactions matching f into table rows,
// ordered by date then ID. IDs are kept for edit and delete operations.
func BuildDetailRows(transactions []core.Transaction, f RowFilter) ([]core.DetailRow, error) {
	q := Query{Year: f.Year, Month: f.Month}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	group := f.Group
	if group == "" {
		group = GroupByCategory
	}
	if err := group.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateLedger(transactions, nil); err != nil {
		return nil, err
	}

	rows := make([]core.DetailRow, 0)
	for _, t := range transactions {
		if !q.contains(t.Date) {
			continue
		}
		if f.Label != "" && group.of(t) != f.Label {
			continue
		}
		rows = append(rows, core.DetailRow{
			ID:          t.ID,
			Date:        t.Date,
			Account:     t.Account,
			Description: t.Description,
			Amount:      t.Amount.Round(2),
			Category:    t.Category,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date.Time) {
			return rows[i].Date.Before(rows[j].Date.Time)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}
