package core

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Status classifies a category against its budget.
type Status string

const (
	StatusUnder      Status = "under"
	StatusAt         Status = "at"
	StatusOver       Status = "over"
	StatusNoBudget   Status = "no_budget"
	StatusZeroBudget Status = "zero_budget"
)

// CategorySummary is the evaluated budget progress of one category in one period.
type CategorySummary struct {
	Category  string           `json:"category"`
	Spent     decimal.Decimal  `json:"spent"`
	Budget    *decimal.Decimal `json:"budget"`
	Remaining *decimal.Decimal `json:"remaining,omitempty"`
	Percent   *int             `json:"percent"`
	Status    Status           `json:"status"`
	Message   string           `json:"message"`
	Rank      int              `json:"rank"`
	Color     string           `json:"color,omitempty"`
}

// BudgetReport is the ranked budget view for a period.
type BudgetReport struct {
	Year        int               `json:"year"`
	Month       int               `json:"month,omitempty"`
	Category    string            `json:"category,omitempty"`
	TotalSpent  decimal.Decimal   `json:"total_spent"`
	TotalBudget decimal.Decimal   `json:"total_budget"`
	TotalIncome decimal.Decimal   `json:"total_income"`
	Summaries   []CategorySummary `json:"summaries"`
}

// MonthSeries holds per-group sums for one (year, month); Data is aligned to Labels.
type MonthSeries struct {
	Year   int               `json:"year"`
	Month  int               `json:"month"`
	Labels []string          `json:"labels"`
	Data   []decimal.Decimal `json:"data"`
}

// Dataset is one stacked series of a chart.
type Dataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// Series is a chart-ready shape: every dataset is aligned to Labels.
type Series struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// DetailRow is a transaction flattened for an editable table.
type DetailRow struct {
	ID          string          `json:"id"`
	Date        Date            `json:"date"`
	Account     string          `json:"account"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
}

// HSL is a color as hue (degrees), saturation and lightness (percent).
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

func (c HSL) String() string {
	return fmt.Sprintf("hsl(%s, %s%%, %s%%)", trimFloat(c.H), trimFloat(c.S), trimFloat(c.L))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// RGB converts the color to 8-bit red, green and blue channels.
func (c HSL) RGB() (r, g, b uint8) {
	h := math.Mod(c.H, 360)
	if h < 0 {
		h += 360
	}
	s, l := c.S/100, c.L/100
	chroma := (1 - math.Abs(2*l-1)) * s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - chroma/2

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf = chroma, x
	case h < 120:
		rf, gf = x, chroma
	case h < 180:
		gf, bf = chroma, x
	case h < 240:
		gf, bf = x, chroma
	case h < 300:
		rf, bf = x, chroma
	default:
		rf, bf = chroma, x
	}
	to8 := func(v float64) uint8 { return uint8(math.Round((v + m) * 255)) }
	return to8(rf), to8(gf), to8(bf)
}
