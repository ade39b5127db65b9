package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budgetlens/internal/amqp"
	"budgetlens/internal/budget"
	"budgetlens/internal/services"
)

// Snapshotter writes a report snapshot when it changed since the last write.
type Snapshotter interface {
	Snapshot(ctx context.Context, q budget.Query) (bool, error)
}

// SnapshotWorker reacts to ledger change events by recomputing the affected
// period's budget report and writing it to the snapshot sink.
type SnapshotWorker struct {
	invalidate services.ChangeListener
	snapshots  Snapshotter
	now        func() time.Time
}

// NewSnapshotWorker builds a worker. A nil snapshotter makes the worker only
// drop cached reports, which is enough when no snapshot sink is configured.
func NewSnapshotWorker(invalidate services.ChangeListener, snapshots Snapshotter) *SnapshotWorker {
	return &SnapshotWorker{invalidate: invalidate, snapshots: snapshots, now: time.Now}
}

// HandleLedgerChanged processes a single ledger change message from AMQP.
func (w *SnapshotWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger changed message",
		"year", msg.Year,
		"month", msg.Month,
		"reason", msg.Reason)

	if w.invalidate != nil {
		// Whole-year events come from budget edits, which may span years.
		if msg.Month == 0 {
			w.invalidate.LedgerChanged(ctx, 0, 0)
		} else {
			w.invalidate.LedgerChanged(ctx, msg.Year, msg.Month)
		}
	}

	if w.snapshots == nil {
		slog.DebugContext(ctx, "No snapshot sink configured, skipping snapshot", "year", msg.Year)
		return nil
	}

	q := budget.Query{Year: msg.Year, Month: msg.Month}
	wrote, err := w.snapshots.Snapshot(ctx, q)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", q.Key(), err)
	}
	slog.InfoContext(ctx, "Ledger change processed", "period", q.Key(), "snapshot_written", wrote)
	return nil
}

// StartupSnapshot writes the current month's report once at worker start, to
// recover from events missed while the worker was down.
func (w *SnapshotWorker) StartupSnapshot(ctx context.Context) error {
	if w.snapshots == nil {
		return nil
	}
	now := w.now()
	q := budget.Query{Year: now.Year(), Month: int(now.Month())}
	wrote, err := w.snapshots.Snapshot(ctx, q)
	if err != nil {
		return fmt.Errorf("startup snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Startup snapshot completed", "period", q.Key(), "snapshot_written", wrote)
	return nil
}
