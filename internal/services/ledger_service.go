package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"budgetlens/internal/core"
	"budgetlens/internal/ledger"
)

// Publisher announces ledger changes to other processes.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, year, month int, reason string) error
}

// ChangeListener is told about ledger changes in-process, before publishing.
// Month 0 means the whole year; year 0 means every year.
type ChangeListener interface {
	LedgerChanged(ctx context.Context, year, month int)
}

// LedgerService orchestrates ledger writes across the store and AMQP.
type LedgerService struct {
	store     ledger.Store
	publisher Publisher
	listeners []ChangeListener
}

// NewLedgerService wires a store with an optional publisher (nil disables events).
func NewLedgerService(store ledger.Store, publisher Publisher, listeners ...ChangeListener) *LedgerService {
	return &LedgerService{store: store, publisher: publisher, listeners: listeners}
}

func (s *LedgerService) ListTransactions(ctx context.Context, year int) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, year)
}

// AddTransaction stores t first and then announces the change. A failed
// announcement is logged; the transaction stays saved.
func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	saved, err := s.store.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.changed(ctx, saved.Date.Year(), saved.Date.Month(), "transaction.added")
	return saved, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	removed, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.changed(ctx, removed.Date.Year(), removed.Date.Month(), "transaction.deleted")
	return nil
}

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.BudgetDefinition, error) {
	return s.store.ListBudgets(ctx)
}

// PutBudget saves b. Budgets can span years, so every cached year is
// invalidated and the event names the start year as a whole.
func (s *LedgerService) PutBudget(ctx context.Context, b core.BudgetDefinition) (core.BudgetDefinition, error) {
	saved, err := s.store.PutBudget(ctx, b)
	if err != nil {
		return core.BudgetDefinition{}, fmt.Errorf("save budget: %w", err)
	}
	s.notify(ctx, 0, 0)
	s.publish(ctx, saved.StartDate.Year(), 0, "budget.saved")
	return saved, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, id string) error {
	budgets, err := s.store.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	year := 0
	for _, b := range budgets {
		if b.ID == id {
			year = b.StartDate.Year()
		}
	}
	if err := s.store.DeleteBudget(ctx, id); err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	s.notify(ctx, 0, 0)
	if year != 0 {
		s.publish(ctx, year, 0, "budget.deleted")
	}
	return nil
}

func (s *LedgerService) changed(ctx context.Context, year, month int, reason string) {
	s.notify(ctx, year, month)
	s.publish(ctx, year, month, reason)
}

func (s *LedgerService) notify(ctx context.Context, year, month int) {
	for _, l := range s.listeners {
		l.LedgerChanged(ctx, year, month)
	}
}

func (s *LedgerService) publish(ctx context.Context, year, month int, reason string) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping ledger changed message", "reason", reason)
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, year, month, reason); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger changed message",
			"year", year, "month", month, "reason", reason, "error", err)
	}
}

// Close closes the store and publisher when they hold resources.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
