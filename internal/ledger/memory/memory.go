package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"budgetlens/internal/core"
	"budgetlens/internal/ledger"

	"github.com/google/uuid"
)

var (
	_ ledger.Store          = (*Store)(nil)
	_ ledger.SnapshotWriter = (*Store)(nil)
)

type Store struct {
	mu        sync.Mutex
	txs       map[string]core.Transaction
	budgets   map[string]core.BudgetDefinition
	snapshots []core.BudgetReport
}

func New(txs []core.Transaction, budgets []core.BudgetDefinition) *Store {
	s := &Store{
		txs:     make(map[string]core.Transaction, len(txs)),
		budgets: make(map[string]core.BudgetDefinition, len(budgets)),
	}
	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		s.txs[t.ID] = t
	}
	for _, b := range budgets {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		s.budgets[b.ID] = b
	}
	return s
}

// NewFromFiles seeds the store from transactions.json and budgets.json in
// base. Missing files yield an empty ledger.
func NewFromFiles(base string) (*Store, error) {
	var txs []core.Transaction
	if err := readJSON(filepath.Join(base, "transactions.json"), &txs); err != nil {
		return nil, err
	}
	var budgets []core.BudgetDefinition
	if err := readJSON(filepath.Join(base, "budgets.json"), &budgets); err != nil {
		return nil, err
	}
	return New(txs, budgets), nil
}

func (s *Store) ListTransactions(_ context.Context, year int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, t := range s.txs {
		if t.Date.Year() == year {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return t, nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.BudgetDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BudgetDefinition, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) PutBudget(_ context.Context, b core.BudgetDefinition) (core.BudgetDefinition, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return core.BudgetDefinition{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return fmt.Errorf("budget %s: %w", id, core.ErrNotFound)
	}
	delete(s.budgets, id)
	return nil
}

// WriteSnapshot keeps the report in memory; Snapshots exposes them for tests
// and the dev server.
func (s *Store) WriteSnapshot(_ context.Context, report core.BudgetReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, report)
	return nil
}

func (s *Store) Snapshots() []core.BudgetReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.BudgetReport(nil), s.snapshots...)
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := requireAmounts(b); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode seed %s: %w", path, err)
	}
	return nil
}

// requireAmounts rejects seed records without an amount, which would
// otherwise decode as zero.
func requireAmounts(b []byte) error {
	var records []map[string]json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		return err
	}
	for i, r := range records {
		if raw, ok := r["amount"]; !ok || string(raw) == "null" {
			id := fmt.Sprintf("#%d", i+1)
			if rawID, ok := r["id"]; ok {
				_ = json.Unmarshal(rawID, &id)
			}
			return fmt.Errorf("%w: record %s: missing amount", core.ErrMalformedRecord, id)
		}
	}
	return nil
}
