package export

import (
	"bytes"
	"testing"

	"budgetlens/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func sampleReport() core.BudgetReport {
	dec := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	pct := func(v int) *int { return &v }
	return core.BudgetReport{
		Year:        2024,
		Month:       3,
		TotalSpent:  decimal.RequireFromString("430"),
		TotalBudget: decimal.RequireFromString("300"),
		TotalIncome: decimal.RequireFromString("2000"),
		Summaries: []core.CategorySummary{
			{Category: "Food", Spent: decimal.RequireFromString("350"), Budget: dec("300"), Remaining: dec("-50"), Percent: pct(117), Status: core.StatusOver, Message: "Over budget", Rank: 1, Color: "hsl(0, 100%, 50%)"},
			{Category: "Café", Spent: decimal.RequireFromString("80"), Status: core.StatusNoBudget, Message: "No budget", Rank: 2},
		},
	}
}

func sampleRows() []core.DetailRow {
	return []core.DetailRow{
		{ID: "t1", Date: core.NewDate(2024, 3, 2), Account: "Checking", Category: "Food", Description: "Groceries", Amount: decimal.RequireFromString("350.00")},
		{ID: "t2", Date: core.NewDate(2024, 3, 9), Account: "Cash", Category: "Café", Description: "Coffee", Amount: decimal.RequireFromString("80.5")},
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, sampleReport(), sampleRows()); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != BudgetSheet || sheets[1] != TransactionsSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	rows, err := f.GetRows(BudgetSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header, 2 summaries, totals and income rows, got %d", len(rows))
	}
	if rows[0][1] != "Category" || rows[1][1] != "Food" || rows[2][1] != "Café" {
		t.Fatalf("budget rows = %v", rows)
	}
	if rows[1][5] != "117" || rows[1][6] != "over" {
		t.Fatalf("food row = %v", rows[1])
	}
	if len(rows[2]) > 3 && rows[2][3] != "" {
		t.Fatalf("no-budget category must have an empty budget cell: %v", rows[2])
	}

	txRows, err := f.GetRows(TransactionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(txRows) != 3 || txRows[1][0] != "t1" || txRows[2][1] != "2024-03-09" {
		t.Fatalf("transaction rows = %v", txRows)
	}
}

func TestWriteWorkbookEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, core.BudgetReport{Year: 2024}, nil); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty workbook output")
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleReport()); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		r    core.BudgetReport
		want string
	}{
		{core.BudgetReport{Year: 2024}, "2024"},
		{core.BudgetReport{Year: 2024, Month: 3}, "2024-03"},
		{core.BudgetReport{Year: 2024, Month: 11, Category: "Food"}, "2024-11 (Food)"},
	}
	for _, tt := range tests {
		if got := period(tt.r); got != tt.want {
			t.Errorf("period() = %q, want %q", got, tt.want)
		}
	}
}
