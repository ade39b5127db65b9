package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"budgetlens/internal/budget"
	"budgetlens/internal/core"
	"budgetlens/internal/ledger"
)

// ReportSource computes budget reports.
type ReportSource interface {
	Budget(ctx context.Context, q budget.Query) (core.BudgetReport, error)
}

// SnapshotProcessorConfig holds configuration for the snapshot processor
type SnapshotProcessorConfig struct {
	// PollInterval is how often the current month is recomputed (default: 5m)
	PollInterval time.Duration

	// MaxRetries bounds write attempts per poll (default: 3)
	MaxRetries int
}

// DefaultSnapshotProcessorConfig returns sensible defaults
func DefaultSnapshotProcessorConfig() SnapshotProcessorConfig {
	return SnapshotProcessorConfig{
		PollInterval: 5 * time.Minute,
		MaxRetries:   3,
	}
}

// SnapshotProcessor periodically writes the current month's budget report
// when it differs from the last one written. It is the polling fallback for
// deployments without AMQP.
type SnapshotProcessor struct {
	reports ReportSource
	writer  ledger.SnapshotWriter
	config  SnapshotProcessorConfig
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    map[string]string
}

func NewSnapshotProcessor(reports ReportSource, writer ledger.SnapshotWriter, config SnapshotProcessorConfig) *SnapshotProcessor {
	def := DefaultSnapshotProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	return &SnapshotProcessor{
		reports: reports,
		writer:  writer,
		config:  config,
		now:     time.Now,
		last:    map[string]string{},
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SnapshotProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("snapshot processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx, p.stopCh, p.doneCh)

	slog.InfoContext(ctx, "Snapshot processor started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop gracefully stops the processor and waits for completion. Repeated or
// concurrent calls are safe.
func (p *SnapshotProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Snapshot processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Snapshot processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *SnapshotProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SnapshotProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logErr(ctx, p.ProcessOnce(ctx))
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.logErr(ctx, p.ProcessOnce(ctx))
		}
	}
}

func (p *SnapshotProcessor) logErr(ctx context.Context, err error) {
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot processing failed", "error", err)
	}
}

// ProcessOnce snapshots the current month. It reports whether a write
// happened through the error only: unchanged reports are skipped silently.
func (p *SnapshotProcessor) ProcessOnce(ctx context.Context) error {
	now := p.now()
	_, err := p.Snapshot(ctx, budget.Query{Year: now.Year(), Month: int(now.Month())})
	return err
}

// Snapshot computes the report for q and writes it unless it matches the
// last report written for the same query. It returns whether it wrote.
func (p *SnapshotProcessor) Snapshot(ctx context.Context, q budget.Query) (bool, error) {
	report, err := p.reports.Budget(ctx, q)
	if err != nil {
		return false, fmt.Errorf("compute report %s: %w", q.Key(), err)
	}
	fp, err := fingerprint(report)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	unchanged := p.last[q.Key()] == fp
	p.mu.Unlock()
	if unchanged {
		slog.DebugContext(ctx, "Snapshot unchanged, skipping", "period", q.Key())
		return false, nil
	}

	var writeErr error
	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		if writeErr = p.writer.WriteSnapshot(ctx, report); writeErr == nil {
			break
		}
		slog.WarnContext(ctx, "Snapshot write failed", "attempt", attempt, "period", q.Key(), "error", writeErr)
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
	if writeErr != nil {
		return false, fmt.Errorf("write snapshot %s after %d attempts: %w", q.Key(), p.config.MaxRetries, writeErr)
	}

	p.mu.Lock()
	p.last[q.Key()] = fp
	p.mu.Unlock()
	slog.InfoContext(ctx, "Snapshot written", "period", q.Key(), "categories", len(report.Summaries))
	return true, nil
}

func fingerprint(r core.BudgetReport) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("fingerprint report: %w", err)
	}
	return string(b), nil
}
