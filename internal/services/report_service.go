package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"budgetlens/internal/budget"
	"budgetlens/internal/cache"
	"budgetlens/internal/core"
	"budgetlens/internal/ledger"

	"golang.org/x/sync/errgroup"
)

// BudgetLister is the read side of ledger.BudgetStore.
type BudgetLister interface {
	ListBudgets(ctx context.Context) ([]core.BudgetDefinition, error)
}

// ReportService loads a year of ledger data and runs the budget engine over
// it. Budget reports are memoized per query; cached keys are tracked per year
// so a ledger change only drops the reports of the affected year.
type ReportService struct {
	txs     ledger.TransactionLister
	budgets BudgetLister
	cache   cache.Cache[core.BudgetReport]

	mu     sync.Mutex
	byYear map[int]map[string]struct{}
	gen    uint64
}

// NewReportService builds the service; a nil cache disables memoization.
func NewReportService(txs ledger.TransactionLister, budgets BudgetLister, c cache.Cache[core.BudgetReport]) *ReportService {
	return &ReportService{txs: txs, budgets: budgets, cache: c, byYear: map[int]map[string]struct{}{}}
}

// Budget returns the ranked budget report for q.
func (s *ReportService) Budget(ctx context.Context, q budget.Query) (core.BudgetReport, error) {
	if err := q.Validate(); err != nil {
		return core.BudgetReport{}, err
	}
	key := q.Key()
	if s.cache != nil {
		if r, ok := s.cache.Get(key); ok {
			slog.DebugContext(ctx, "Budget report served from cache", "key", key)
			return r, nil
		}
	}

	gen := s.generation()
	txs, budgets, err := s.load(ctx, q.Year)
	if err != nil {
		return core.BudgetReport{}, err
	}
	report, err := budget.BuildReport(txs, budgets, q)
	if err != nil {
		return core.BudgetReport{}, err
	}

	if s.cache != nil {
		s.store(gen, q.Year, key, report)
	}
	return report, nil
}

// Series returns the stacked monthly chart series of year.
func (s *ReportService) Series(ctx context.Context, year int, key budget.GroupKey, axis budget.Axis) (core.Series, error) {
	if err := (budget.Query{Year: year}).Validate(); err != nil {
		return core.Series{}, err
	}
	txs, err := s.txs.ListTransactions(ctx, year)
	if err != nil {
		return core.Series{}, fmt.Errorf("list transactions: %w", err)
	}
	return budget.BuildMonthlySeries(txs, year, key, axis)
}

// Months returns per-month group sums of year.
func (s *ReportService) Months(ctx context.Context, year int, key budget.GroupKey) ([]core.MonthSeries, error) {
	if err := (budget.Query{Year: year}).Validate(); err != nil {
		return nil, err
	}
	txs, err := s.txs.ListTransactions(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if err := budget.ValidateLedger(txs, nil); err != nil {
		return nil, err
	}
	return budget.AggregateByMonth(txs, key)
}

// Rows returns the drill-down rows selected by f.
func (s *ReportService) Rows(ctx context.Context, f budget.RowFilter) ([]core.DetailRow, error) {
	if err := (budget.Query{Year: f.Year, Month: f.Month}).Validate(); err != nil {
		return nil, err
	}
	txs, err := s.txs.ListTransactions(ctx, f.Year)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return budget.BuildDetailRows(txs, f)
}

// LedgerChanged drops cached reports of year, or of every year when year is 0.
func (s *ReportService) LedgerChanged(ctx context.Context, year, _ int) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++

	if year == 0 {
		s.cache.Clear()
		s.byYear = map[int]map[string]struct{}{}
		slog.DebugContext(ctx, "Report cache cleared")
		return
	}
	for key := range s.byYear[year] {
		s.cache.Delete(key)
	}
	delete(s.byYear, year)
	slog.DebugContext(ctx, "Report cache invalidated", "year", year)
}

func (s *ReportService) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// store caches report unless the ledger changed since gen was read.
func (s *ReportService) store(gen uint64, year int, key string, report core.BudgetReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.cache.Set(key, report)
	keys, ok := s.byYear[year]
	if !ok {
		keys = map[string]struct{}{}
		s.byYear[year] = keys
	}
	keys[key] = struct{}{}
}

// load fetches the year's transactions and all budgets concurrently.
func (s *ReportService) load(ctx context.Context, year int) ([]core.Transaction, []core.BudgetDefinition, error) {
	var (
		txs     []core.Transaction
		budgets []core.BudgetDefinition
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if txs, err = s.txs.ListTransactions(gctx, year); err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if budgets, err = s.budgets.ListBudgets(gctx); err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return txs, budgets, nil
}
