package http

import (
	"bytes"
	"net/http"

	"budgetlens/internal/budget"
	"budgetlens/internal/core"
	"budgetlens/internal/export"
	applog "budgetlens/internal/log"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

func (s *Server) reportParams(w http.ResponseWriter, r *http.Request) (ReportParams, bool) {
	p, err := ParseReportParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return ReportParams{}, false
	}
	return p, true
}

func (s *Server) budgetReport(w http.ResponseWriter, r *http.Request) (ReportParams, core.BudgetReport, bool) {
	p, ok := s.reportParams(w, r)
	if !ok {
		return p, core.BudgetReport{}, false
	}
	report, err := s.reports.Budget(r.Context(), p.Query())
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return p, core.BudgetReport{}, false
	}
	s.logger.LogReportServed(r.Context(), p.Year, p.Month, len(report.Summaries))
	return p, report, true
}

// handleBudgetReport serves the ranked per-category summaries for
// ?year&month&category.
func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	_, report, ok := s.budgetReport(w, r)
	if !ok {
		return
	}
	NewResponse().JSON(report).Write(w)
}

func (s *Server) handleBudgetWorkbook(w http.ResponseWriter, r *http.Request) {
	p, report, ok := s.budgetReport(w, r)
	if !ok {
		return
	}
	rows, err := s.reports.Rows(r.Context(), budget.RowFilter{
		Year:  p.Year,
		Month: p.Month,
		Label: p.Category,
		Group: budget.GroupByCategory,
	})
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, report, rows); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	NewResponse().Attachment(contentTypeXLSX, exportName(p, "xlsx"), buf.Bytes()).Write(w)
}

func (s *Server) handleBudgetPDF(w http.ResponseWriter, r *http.Request) {
	p, report, ok := s.budgetReport(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, report); err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	NewResponse().Attachment(contentTypePDF, exportName(p, "pdf"), buf.Bytes()).Write(w)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	p, ok := s.reportParams(w, r)
	if !ok {
		return
	}
	series, err := s.reports.Series(r.Context(), p.Year, p.Group, p.Axis)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	NewResponse().JSON(series).Write(w)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	p, ok := s.reportParams(w, r)
	if !ok {
		return
	}
	months, err := s.reports.Months(r.Context(), p.Year, p.Group)
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	if months == nil {
		months = []core.MonthSeries{}
	}
	NewResponse().JSON(months).Write(w)
}

// handleRows serves the drill-down table behind a chart bar or a category.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	p, ok := s.reportParams(w, r)
	if !ok {
		return
	}
	rows, err := s.reports.Rows(r.Context(), budget.RowFilter{
		Year:  p.Year,
		Month: p.Month,
		Label: p.Label,
		Group: p.Group,
	})
	if err != nil {
		writeError(w, r, applog.OpReport, err)
		return
	}
	if rows == nil {
		rows = []core.DetailRow{}
	}
	NewResponse().JSON(rows).Write(w)
}
