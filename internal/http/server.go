// Package http serves the budget reports and ledger writes as a JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"budgetlens/internal/budget"
	"budgetlens/internal/core"
	applog "budgetlens/internal/log"
	"budgetlens/internal/middleware/ratelimit"
	"budgetlens/internal/middleware/security"
	"budgetlens/internal/middleware/trace"

	"github.com/go-chi/chi/v5"
)

// Reports is the read side the API serves.
type Reports interface {
	Budget(ctx context.Context, q budget.Query) (core.BudgetReport, error)
	Series(ctx context.Context, year int, key budget.GroupKey, axis budget.Axis) (core.Series, error)
	Months(ctx context.Context, year int, key budget.GroupKey) ([]core.MonthSeries, error)
	Rows(ctx context.Context, f budget.RowFilter) ([]core.DetailRow, error)
}

// Ledger is the write side the API serves.
type Ledger interface {
	ListTransactions(ctx context.Context, year int) ([]core.Transaction, error)
	AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListBudgets(ctx context.Context) ([]core.BudgetDefinition, error)
	PutBudget(ctx context.Context, b core.BudgetDefinition) (core.BudgetDefinition, error)
	DeleteBudget(ctx context.Context, id string) error
}

// Options tunes the server. Zero values are usable.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	// BlockSuspicious rejects probing requests instead of only logging them.
	BlockSuspicious bool
	// Ready backs /readyz; nil always reports ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger  Ledger
	reports Reports

	logger   *applog.StructuredLogger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	ready    func(ctx context.Context) error

	started      time.Time
	now          func() time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, reports Reports, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:   ledger,
		reports:  reports,
		logger:   applog.NewStructuredLogger(logger),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(opts.BlockSuspicious),
		ready:    opts.Ready,
		started:  time.Now(),
		now:      time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		s.tracer.Handler,
		applog.Middleware(logger),
		applog.RequestIDMiddleware(trace.RequestIDFromRequest),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Handler,
		s.detector.Handler,
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no route for " + r.URL.Path).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/reports", func(r chi.Router) {
			r.Get("/budget", s.handleBudgetReport)
			r.Get("/budget.xlsx", s.handleBudgetWorkbook)
			r.Get("/budget.pdf", s.handleBudgetPDF)
			r.Get("/series", s.handleSeries)
			r.Get("/months", s.handleMonths)
			r.Get("/rows", s.handleRows)
		})

		r.Get("/transactions", s.handleListTransactions)
		r.Get("/budgets", s.handleListBudgets)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))
			r.Post("/transactions", s.handleCreateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
			r.Post("/budgets", s.handlePutBudget)
			r.Put("/budgets/{id}", s.handlePutBudget)
			r.Delete("/budgets/{id}", s.handleDeleteBudget)
		})
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	ip := s.detector.ExtractClientIP(r)
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldComponent, applog.ComponentRateLimit,
		applog.FieldClientIP, ip,
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)

	retry := int(s.limiter.RetryAfter(ip) / time.Second)
	if retry < 1 {
		retry = 1
	}
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
		Header("Retry-After", strconv.Itoa(retry)).
		Write(w)
}

// Shutdown stops the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
