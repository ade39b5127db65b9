// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON and file-download responses
// and the mapping from domain errors to status codes.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"budgetlens/internal/budget"
	"budgetlens/internal/core"
	applog "budgetlens/internal/log"
)

// HeaderLedgerChanged names the period a write touched, as "YYYY" or "YYYY-MM".
const HeaderLedgerChanged = "X-Ledger-Changed"

// errBadParam marks malformed query or body parameters.
var errBadParam = errors.New("bad parameter")

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode  int
	headers     map[string]string
	contentType string
	body        []byte
	err         error
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Changed marks the ledger period a write touched. Month 0 names the year.
func (b *ResponseBuilder) Changed(year, month int) *ResponseBuilder {
	if month == 0 {
		return b.Header(HeaderLedgerChanged, fmt.Sprintf("%04d", year))
	}
	return b.Header(HeaderLedgerChanged, fmt.Sprintf("%04d-%02d", year, month))
}

// JSON encodes v as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		b.err = err
		return b
	}
	b.contentType = "application/json"
	b.body = buf.Bytes()
	return b
}

// Attachment sends body as a download named filename.
func (b *ResponseBuilder) Attachment(contentType, filename string, body []byte) *ResponseBuilder {
	b.contentType = contentType
	b.body = body
	return b.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// Write sends the built response. An encoding failure becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		slog.Error("Failed to encode response", "error", b.err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error","status":500}` + "\n"))
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.contentType != "" {
		w.Header().Set("Content-Type", b.contentType)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(ErrorBody{Error: message, Status: statusCode})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func MethodNotAllowedError() *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed")
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadParam),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, budget.ErrUnknownGroupKey),
		errors.Is(err, budget.ErrUnknownAxis):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrMalformedRecord),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidFormula):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err with the request logger and writes its JSON form.
// Internal errors are not echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	logger := applog.FromContext(r.Context())
	fields := applog.NewFields().WithOperation(op).WithError(err)
	fields[applog.FieldStatusCode] = status

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		message = "internal error"
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}
	ErrorResponse(status, message).Write(w)
}
