// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of report query parameters and of ledger
// write bodies, which may be JSON or form-encoded.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgetlens/internal/budget"
	"budgetlens/internal/core"
)

const maxBodyBytes = 64 << 10

// ReportParams holds the query parameters shared by the report endpoints.
type ReportParams struct {
	Year     int
	Month    int
	Category string
	Label    string
	Group    budget.GroupKey
	Axis     budget.Axis
}

// Query is the budget query the parameters select.
func (p ReportParams) Query() budget.Query {
	return budget.Query{Year: p.Year, Month: p.Month, Category: p.Category}
}

// ParseReportParams reads year, month, category, label, group and axis.
// Year defaults to now's year, month to 0 (the whole year), group to
// category and axis to month. Range checks are left to the engine.
func ParseReportParams(query url.Values, now time.Time) (ReportParams, error) {
	params := ReportParams{
		Year:     now.Year(),
		Category: sanitizeInput(query.Get("category")),
		Label:    sanitizeInput(query.Get("label")),
		Group:    budget.GroupKey(strings.ToLower(strings.TrimSpace(query.Get("group")))),
		Axis:     budget.Axis(strings.ToLower(strings.TrimSpace(query.Get("axis")))),
	}
	if params.Group == "" {
		params.Group = budget.GroupByCategory
	}
	if params.Axis == "" {
		params.Axis = budget.AxisMonth
	}

	var err error
	if params.Year, err = intParam(query, "year", params.Year); err != nil {
		return ReportParams{}, err
	}
	if params.Month, err = intParam(query, "month", 0); err != nil {
		return ReportParams{}, err
	}
	return params, nil
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", errBadParam, key, v)
	}
	return n, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("%w: body larger than %d bytes", errBadParam, maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body: %v", errBadParam, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form body: %v", errBadParam, p.err)
	}
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// transactionFromBody builds a ledger entry from a parsed body. The amount may
// be a formula such as "=120+30"; kind defaults to expense and date to today.
func transactionFromBody(p *RequestBodyParser, today core.Date) (core.Transaction, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", p.Get("amount"), err)
	}
	date, err := dateField(p, "date", today)
	if err != nil {
		return core.Transaction{}, err
	}
	kind := core.Kind(strings.ToLower(p.Get("kind")))
	if kind == "" {
		kind = core.Expense
	}
	return core.Transaction{
		ID:          p.Get("id"),
		Date:        date,
		Amount:      amount,
		Account:     p.Get("account"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Kind:        kind,
	}, nil
}

// budgetFromBody builds a budget definition. Enabled defaults to true and the
// start date to the first day of today's month.
func budgetFromBody(p *RequestBodyParser, today core.Date) (core.BudgetDefinition, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.BudgetDefinition{}, fmt.Errorf("amount %q: %w", p.Get("amount"), err)
	}
	start, err := dateField(p, "start_date", core.NewDate(today.Year(), today.Month(), 1))
	if err != nil {
		return core.BudgetDefinition{}, err
	}
	end, err := dateField(p, "end_date", core.Date{})
	if err != nil {
		return core.BudgetDefinition{}, err
	}
	enabled := true
	if v := p.Get("enabled"); v != "" {
		if enabled, err = strconv.ParseBool(v); err != nil {
			return core.BudgetDefinition{}, fmt.Errorf("%w: enabled %q is not a boolean", errBadParam, v)
		}
	}
	return core.BudgetDefinition{
		ID:        p.Get("id"),
		Category:  p.Get("category"),
		Amount:    amount,
		StartDate: start,
		EndDate:   end,
		Enabled:   enabled,
	}, nil
}

func dateField(p *RequestBodyParser, key string, def core.Date) (core.Date, error) {
	v := p.Get(key)
	if v == "" {
		return def, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %s %q is not YYYY-MM-DD", errBadParam, key, v)
	}
	return d, nil
}
