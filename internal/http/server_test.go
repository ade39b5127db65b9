package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"budgetlens/internal/budget"
	"budgetlens/internal/core"
	"budgetlens/internal/ledger/memory"
	applog "budgetlens/internal/log"
	"budgetlens/internal/services"

	"github.com/shopspring/decimal"
)

func fixtureStore() *memory.Store {
	tx := func(id string, m int, amount, category string, kind core.Kind) core.Transaction {
		return core.Transaction{
			ID:       id,
			Date:     core.NewDate(2024, m, 10),
			Amount:   decimal.RequireFromString(amount),
			Account:  "Checking",
			Category: category,
			Kind:     kind,
		}
	}
	return memory.New(
		[]core.Transaction{
			tx("t1", 3, "150", "Food", core.Expense),
			tx("t2", 3, "80", "Fun", core.Expense),
			tx("t3", 4, "20", "Food", core.Expense),
			tx("t4", 3, "2000", "", core.Income),
		},
		[]core.BudgetDefinition{{
			ID:        "b1",
			Category:  "Food",
			Amount:    decimal.NewFromInt(300),
			StartDate: core.NewDate(2024, 1, 1),
			Enabled:   true,
		}},
	)
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	store := fixtureStore()
	reports := services.NewReportService(store, store, nil)
	ledger := services.NewLedgerService(store, nil, reports)
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Output: &bytes.Buffer{}})
	}
	srv := NewServer(":0", ledger, reports, opts)
	srv.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing middleware headers: %v", path, rr.Header())
		}
	}

	failing := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	rr := do(t, failing, http.MethodGet, "/readyz", "", "")
	if rr.Code != http.StatusServiceUnavailable || !strings.Contains(rr.Body.String(), "db down") {
		t.Fatalf("readyz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestBudgetReport(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/api/reports/budget?year=2024&month=3", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	report := decode[core.BudgetReport](t, rr)
	if len(report.Summaries) != 2 {
		t.Fatalf("summaries = %+v", report.Summaries)
	}
	food := report.Summaries[0]
	if food.Category != "Food" || food.Percent == nil || *food.Percent != 50 || food.Status != core.StatusUnder {
		t.Fatalf("food = %+v", food)
	}
	if report.Summaries[1].Status != core.StatusNoBudget {
		t.Fatalf("fun = %+v", report.Summaries[1])
	}
	if !report.TotalIncome.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("income = %s", report.TotalIncome)
	}
}

func TestReportErrors(t *testing.T) {
	srv := newTestServer(t, Options{})
	tests := []struct {
		target string
		want   int
	}{
		{"/api/reports/budget?year=abc", http.StatusBadRequest},
		{"/api/reports/budget?year=2024&month=13", http.StatusBadRequest},
		{"/api/reports/budget?year=24", http.StatusBadRequest},
		{"/api/reports/series?year=2024&group=payee", http.StatusBadRequest},
		{"/api/reports/series?year=2024&axis=week", http.StatusBadRequest},
		{"/api/reports/months?year=2024&group=payee", http.StatusBadRequest},
		{"/api/reports/rows?year=2024&month=x", http.StatusBadRequest},
		{"/api/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, "", "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
			body := decode[ErrorBody](t, rr)
			if body.Status != tt.want || body.Error == "" {
				t.Fatalf("error body = %+v", body)
			}
		})
	}

	rr := do(t, srv, http.MethodPatch, "/api/budgets", "", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PATCH status = %d", rr.Code)
	}
}

func TestSeriesMonthsRows(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/reports/series?year=2024", "", "")
	series := decode[core.Series](t, rr)
	if len(series.Labels) != 12 || len(series.Datasets) != 2 {
		t.Fatalf("series = %+v", series)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/months?year=2024&group=category", "", "")
	months := decode[[]core.MonthSeries](t, rr)
	if len(months) != 2 || months[0].Month != 3 || months[1].Month != 4 {
		t.Fatalf("months = %+v", months)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/rows?year=2024&month=3&label=Food", "", "")
	rows := decode[[]core.DetailRow](t, rr)
	if len(rows) != 1 || rows[0].ID != "t1" {
		t.Fatalf("rows = %+v", rows)
	}

	rr = do(t, srv, http.MethodGet, "/api/reports/rows?year=2023", "", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("empty rows body = %q", rr.Body.String())
	}
}

func TestExports(t *testing.T) {
	srv := newTestServer(t, Options{})
	tests := []struct {
		target      string
		contentType string
		filename    string
		prefix      string
	}{
		{"/api/reports/budget.xlsx?year=2024&month=3", contentTypeXLSX, "budget-2024-03.xlsx", "PK"},
		{"/api/reports/budget.pdf?year=2024&category=Food", contentTypePDF, "budget-2024-Food.pdf", "%PDF-"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			rr := do(t, srv, http.MethodGet, tt.target, "", "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if rr.Header().Get("Content-Type") != tt.contentType {
				t.Fatalf("content type = %q", rr.Header().Get("Content-Type"))
			}
			if !strings.Contains(rr.Header().Get("Content-Disposition"), tt.filename) {
				t.Fatalf("disposition = %q", rr.Header().Get("Content-Disposition"))
			}
			if !strings.HasPrefix(rr.Body.String(), tt.prefix) {
				t.Fatalf("body does not start with %q", tt.prefix)
			}
		})
	}
}

func TestCreateAndDeleteTransaction(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json",
		`{"date":"2024-03-20","amount":"=120+30","account":"Card","category":"Food","description":"market"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(HeaderLedgerChanged) != "2024-03" {
		t.Fatalf("changed header = %q", rr.Header().Get(HeaderLedgerChanged))
	}
	saved := decode[core.Transaction](t, rr)
	if saved.ID == "" || !saved.Amount.Equal(decimal.NewFromInt(150)) || saved.Kind != core.Expense {
		t.Fatalf("saved = %+v", saved)
	}

	report := decode[core.BudgetReport](t, do(t, srv, http.MethodGet, "/api/reports/budget?year=2024&month=3&category=Food", "", ""))
	if len(report.Summaries) != 1 || *report.Summaries[0].Percent != 100 || report.Summaries[0].Status != core.StatusAt {
		t.Fatalf("report after add = %+v", report.Summaries)
	}

	rr = do(t, srv, http.MethodPost, "/api/transactions", "application/x-www-form-urlencoded",
		"amount=2500&account=Bank&kind=income&description=salary")
	if rr.Code != http.StatusCreated {
		t.Fatalf("form status=%d body=%s", rr.Code, rr.Body.String())
	}
	if income := decode[core.Transaction](t, rr); income.Date.String() != "2024-03-15" {
		t.Fatalf("default date = %s", income.Date)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+saved.ID, "", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/transactions/"+saved.ID, "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}

	txs := decode[[]core.Transaction](t, do(t, srv, http.MethodGet, "/api/transactions?year=2024", "", ""))
	if len(txs) != 5 {
		t.Fatalf("transactions = %d", len(txs))
	}
}

func TestCreateTransactionErrors(t *testing.T) {
	srv := newTestServer(t, Options{})
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid amount", `{"amount":"abc","account":"A","category":"Food"}`, http.StatusUnprocessableEntity},
		{"invalid formula", `{"amount":"=2**8","account":"A","category":"Food"}`, http.StatusUnprocessableEntity},
		{"unknown kind", `{"amount":"1","account":"A","category":"Food","kind":"transfer"}`, http.StatusUnprocessableEntity},
		{"missing account", `{"amount":"1","category":"Food"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"amount":"1","account":"A","category":"Food","date":"15/03/2024"}`, http.StatusBadRequest},
		{"broken json", `{"amount":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestBudgetEndpoints(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/budgets", "application/json", `{"category":"Fun","amount":100}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	created := decode[core.BudgetDefinition](t, rr)
	if created.StartDate.String() != "2024-03-01" || !created.Enabled || rr.Header().Get(HeaderLedgerChanged) != "2024" {
		t.Fatalf("created = %+v, header %q", created, rr.Header().Get(HeaderLedgerChanged))
	}

	rr = do(t, srv, http.MethodPut, "/api/budgets/"+created.ID, "application/json",
		`{"category":"Fun","amount":"40","start_date":"2024-01-01"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put status=%d body=%s", rr.Code, rr.Body.String())
	}

	report := decode[core.BudgetReport](t, do(t, srv, http.MethodGet, "/api/reports/budget?year=2024&month=3&category=Fun", "", ""))
	if len(report.Summaries) != 1 || report.Summaries[0].Status != core.StatusOver {
		t.Fatalf("fun after put = %+v", report.Summaries)
	}

	budgets := decode[[]core.BudgetDefinition](t, do(t, srv, http.MethodGet, "/api/budgets", "", ""))
	if len(budgets) != 2 {
		t.Fatalf("budgets = %+v", budgets)
	}

	if rr := do(t, srv, http.MethodPost, "/api/budgets", "application/json", `{"category":"Fun","amount":"-5"}`); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative budget status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/budgets", "application/json", `{"category":"Fun","amount":"5","enabled":"maybe"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("bad enabled status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/budgets/"+created.ID, "", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/budgets/"+created.ID, "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestWriteRateLimit(t *testing.T) {
	srv := newTestServer(t, Options{RateLimitPerMinute: 1})
	body := `{"amount":"1","account":"A","category":"Food"}`

	if rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json", body); rr.Code != http.StatusCreated {
		t.Fatalf("first write status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPost, "/api/transactions", "application/json", body)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("second write status=%d headers=%v", rr.Code, rr.Header())
	}
	if rr := do(t, srv, http.MethodGet, "/api/reports/budget?year=2024", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}

type failingReports struct{}

func (failingReports) Budget(context.Context, budget.Query) (core.BudgetReport, error) {
	return core.BudgetReport{}, errors.New("sheet unavailable")
}
func (failingReports) Series(context.Context, int, budget.GroupKey, budget.Axis) (core.Series, error) {
	return core.Series{}, errors.New("sheet unavailable")
}
func (failingReports) Months(context.Context, int, budget.GroupKey) ([]core.MonthSeries, error) {
	return nil, errors.New("sheet unavailable")
}
func (failingReports) Rows(context.Context, budget.RowFilter) ([]core.DetailRow, error) {
	return nil, errors.New("sheet unavailable")
}

func TestInternalErrorsAreHidden(t *testing.T) {
	srv := NewServer(":0", services.NewLedgerService(fixtureStore(), nil), failingReports{},
		Options{Logger: applog.New(applog.Config{Output: &bytes.Buffer{}})})
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodGet, "/api/reports/budget?year=2024", "", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if body := decode[ErrorBody](t, rr); body.Error != "internal error" {
		t.Fatalf("error body = %+v", body)
	}
}
