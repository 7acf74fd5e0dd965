// Package worker exports budget month overviews to a reporting sink.
// It reacts to snapshot announcements from the interactive process and
// can also run a full export at startup to recover from missed
// messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"monbudget/internal/amqp"
	"monbudget/internal/backend"
	"monbudget/internal/core"
	"monbudget/internal/sheets"
)

// SyncWorker reads the persisted snapshot and writes one overview row
// per budget month.
type SyncWorker struct {
	snapshots backend.SnapshotStore
	overviews sheets.OverviewWriter
	logger    *slog.Logger

	// lastRevision skips exports for announcements that arrive out of
	// order or duplicated after a requeue.
	lastRevision int64
}

func NewSyncWorker(snapshots backend.SnapshotStore, overviews sheets.OverviewWriter, logger *slog.Logger) *SyncWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWorker{
		snapshots: snapshots,
		overviews: overviews,
		logger:    logger,
	}
}

// HandleSyncMessage processes one snapshot announcement from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SnapshotSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing snapshot sync message",
		"revision", msg.Revision,
		"source", msg.Source)

	if msg.Revision != 0 && msg.Revision <= w.lastRevision {
		w.logger.DebugContext(ctx, "Skipping stale revision",
			"revision", msg.Revision,
			"last_revision", w.lastRevision)
		return nil
	}

	if err := w.ExportAll(ctx); err != nil {
		return err
	}
	if msg.Revision > w.lastRevision {
		w.lastRevision = msg.Revision
	}
	return nil
}

// ExportAll loads the snapshot and exports every budget month. Months
// whose keys fail to parse are logged and skipped.
func (w *SyncWorker) ExportAll(ctx context.Context) error {
	snap, err := w.snapshots.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	exported := 0
	for rawKey, budget := range snap.Budgets {
		if _, err := core.ParseMonthKey(rawKey); err != nil {
			w.logger.WarnContext(ctx, "Skipping budget with malformed key", "key", rawKey)
			continue
		}
		ov := core.Overview(budget)
		if err := w.overviews.WriteMonthOverview(ctx, ov); err != nil {
			return fmt.Errorf("write overview for %s: %w", rawKey, err)
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Exported month overviews",
		"months", exported,
		"total", len(snap.Budgets))
	return nil
}

// StartupSyncCheck runs a full export on worker startup so the report
// catches up after downtime or lost messages.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	err := w.ExportAll(ctx)
	if err == nil {
		return nil
	}
	// A missing snapshot on first boot is not a failure.
	if errors.Is(err, core.ErrNotFound) {
		w.logger.InfoContext(ctx, "No snapshot found on startup, nothing to export")
		return nil
	}
	return fmt.Errorf("startup export: %w", err)
}
