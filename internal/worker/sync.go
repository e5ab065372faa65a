package worker

import (
	"context"
	"log/slog"
	"time"
)

// Syncer is the sync client operation the sync worker drives.
type Syncer interface {
	FullSync(ctx context.Context) bool
}

// SyncWorker runs a full sync periodically.
type SyncWorker struct {
	syncer   Syncer
	interval time.Duration
}

// NewSyncWorker creates a worker with the given syncer and interval.
func NewSyncWorker(syncer Syncer, interval time.Duration) *SyncWorker {
	return &SyncWorker{
		syncer:   syncer,
		interval: interval,
	}
}

// Run syncs immediately on start, then on each interval, until ctx is
// cancelled. A failed sync is logged and retried on the next tick.
func (w *SyncWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "sync",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sync(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "sync",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.sync(ctx)
		}
	}
}

func (w *SyncWorker) sync(ctx context.Context) {
	start := time.Now()
	ok := w.syncer.FullSync(ctx)
	if ctx.Err() != nil {
		return
	}
	if !ok {
		slog.Warn("sync failed",
			"component", "worker",
			"action", "sync_failed",
		)
		return
	}
	slog.Info("sync completed",
		"component", "worker",
		"action", "sync_complete",
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
