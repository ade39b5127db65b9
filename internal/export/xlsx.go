// Package export renders budget reports as downloadable files.
package export

import (
	"fmt"
	"io"
	"strconv"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	BudgetSheet       = "Budget"
	TransactionsSheet = "Transactions"

	colorHeader = "#2D3436"
	colorOver   = "#FADBD8"
	numFmtMoney = 4 // #,##0.00
)

var (
	budgetHeaders = []string{"Rank", "Category", "Spent", "Budget", "Remaining", "Percent", "Status", "Message"}
	rowHeaders    = []string{"ID", "Date", "Account", "Category", "Description", "Amount"}
)

// WriteWorkbook writes report and its drill-down rows as an xlsx workbook with
// a "Budget" and a "Transactions" sheet.
func WriteWorkbook(w io.Writer, report core.BudgetReport, rows []core.DetailRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", BudgetSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(TransactionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := writeBudgetSheet(f, st, report); err != nil {
		return err
	}
	if err := writeRowsSheet(f, st, rows); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header, money, over int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{NumFmt: numFmtMoney}); err != nil {
		return s, fmt.Errorf("money style: %w", err)
	}
	if s.over, err = f.NewStyle(&excelize.Style{
		Fill:   excelize.Fill{Type: "pattern", Color: []string{colorOver}, Pattern: 1},
		NumFmt: numFmtMoney,
	}); err != nil {
		return s, fmt.Errorf("over style: %w", err)
	}
	return s, nil
}

func writeHeader(f *excelize.File, sheet string, style int, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeBudgetSheet(f *excelize.File, st styles, r core.BudgetReport) error {
	const sheet = BudgetSheet
	if err := writeHeader(f, sheet, st.header, budgetHeaders); err != nil {
		return fmt.Errorf("budget header: %w", err)
	}

	row := 2
	for _, s := range r.Summaries {
		values := []any{s.Rank, s.Category, money(s.Spent), optMoney(s.Budget), optMoney(s.Remaining), optPercent(s.Percent), string(s.Status), s.Message}
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &values); err != nil {
			return fmt.Errorf("budget row %d: %w", row, err)
		}
		style := st.money
		if s.Status == core.StatusOver {
			style = st.over
		}
		if err := f.SetCellStyle(sheet, cellName(3, row), cellName(5, row), style); err != nil {
			return err
		}
		row++
	}

	totals := []any{"", "Total", money(r.TotalSpent), money(r.TotalBudget)}
	if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row), &totals); err != nil {
		return fmt.Errorf("budget totals: %w", err)
	}
	if err := f.SetCellStyle(sheet, cellName(3, row), cellName(4, row), st.money); err != nil {
		return err
	}
	income := []any{"", "Income", money(r.TotalIncome)}
	if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(row+1), &income); err != nil {
		return fmt.Errorf("budget income: %w", err)
	}
	return f.SetColWidth(sheet, "B", "B", 24)
}

func writeRowsSheet(f *excelize.File, st styles, rows []core.DetailRow) error {
	const sheet = TransactionsSheet
	if err := writeHeader(f, sheet, st.header, rowHeaders); err != nil {
		return fmt.Errorf("transactions header: %w", err)
	}
	for i, r := range rows {
		n := i + 2
		values := []any{r.ID, r.Date.String(), r.Account, r.Category, r.Description, money(r.Amount)}
		if err := f.SetSheetRow(sheet, "A"+strconv.Itoa(n), &values); err != nil {
			return fmt.Errorf("transactions row %d: %w", n, err)
		}
	}
	if len(rows) > 0 {
		if err := f.SetCellStyle(sheet, "F2", cellName(6, len(rows)+1), st.money); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "E", "E", 40)
}

func cellName(col, row int) string {
	c, _ := excelize.CoordinatesToCellName(col, row)
	return c
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func optMoney(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return money(*d)
}

func optPercent(p *int) any {
	if p == nil {
		return ""
	}
	return *p
}
