package export

import (
	"fmt"
	"io"

	"budgetlens/internal/budget"
	"budgetlens/internal/core"

	"github.com/phpdave11/gofpdf"
)

const barWidth = 50.0

// WritePDF renders report as a one-page A4 summary with a progress bar per
// category, colored like the on-screen report.
func WritePDF(w io.Writer, report core.BudgetReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Budget report", false)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Budget report "+period(report))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Spent %s of %s budgeted", core.FormatAmount(report.TotalSpent), core.FormatAmount(report.TotalBudget)))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Income "+core.FormatAmount(report.TotalIncome))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(10, 7, "#")
	pdf.Cell(45, 7, "Category")
	pdf.Cell(28, 7, "Spent")
	pdf.Cell(28, 7, "Budget")
	pdf.Cell(barWidth+4, 7, "Used")
	pdf.Cell(0, 7, "Status")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	for _, s := range report.Summaries {
		pdf.Cell(10, 7, fmt.Sprint(s.Rank))
		pdf.Cell(45, 7, tr(s.Category))
		pdf.Cell(28, 7, core.FormatAmount(s.Spent))
		if s.Budget != nil {
			pdf.Cell(28, 7, core.FormatAmount(*s.Budget))
		} else {
			pdf.Cell(28, 7, "-")
		}
		drawBar(pdf, s.Percent)
		pdf.Cell(0, 7, tr(s.Message))
		pdf.Ln(7)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// drawBar draws the percent-used bar in the next barWidth+4 mm of the line.
func drawBar(pdf *gofpdf.Fpdf, percent *int) {
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	pdf.Rect(x, y+1.5, barWidth, 4, "D")
	if percent != nil {
		filled := float64(*percent) / 100
		if filled > 1 {
			filled = 1
		}
		if filled > 0 {
			r, g, b := budget.ColorFor(float64(*percent)).RGB()
			pdf.SetFillColor(int(r), int(g), int(b))
			pdf.Rect(x, y+1.5, barWidth*filled, 4, "F")
		}
	}
	pdf.SetX(x + barWidth + 4)
}

func period(r core.BudgetReport) string {
	p := fmt.Sprint(r.Year)
	if r.Month != 0 {
		p = fmt.Sprintf("%d-%02d", r.Year, r.Month)
	}
	if r.Category != "" {
		p += " (" + r.Category + ")"
	}
	return p
}
