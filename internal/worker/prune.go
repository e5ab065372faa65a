package worker

import (
	"context"
	"log/slog"
	"time"
)

// Pruner drops expired in-memory state and reports how much it removed.
type Pruner interface {
	Prune() int
}

// PruneWorker periodically prunes the in-memory rate-limit windows so
// clients seen once do not stay in memory forever.
type PruneWorker struct {
	pruner   Pruner
	interval time.Duration
}

// NewPruneWorker creates a worker with the given pruner and interval.
func NewPruneWorker(p Pruner, interval time.Duration) *PruneWorker {
	return &PruneWorker{pruner: p, interval: interval}
}

// Run prunes on each interval until ctx is cancelled.
func (w *PruneWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := w.pruner.Prune(); n > 0 {
				slog.Debug("pruned rate-limit windows",
					"component", "worker",
					"worker", "prune",
					"removed", n,
				)
			}
		}
	}
}
