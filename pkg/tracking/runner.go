package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/mindful-auto/maa-core/pkg/metrics"
)

// Runner drives the store on a fixed interval until its context is
// cancelled. Snapshots are published on Updates; a slow consumer only ever
// loses intermediate frames, never blocks the tick.
type Runner struct {
	store    *Store
	interval time.Duration
	rand     Rand
	logger   *slog.Logger
	updates  chan []Entity
}

// NewRunner creates a runner for the store. A nil rand falls back to the
// system PRNG.
func NewRunner(store *Store, interval time.Duration, r Rand, logger *slog.Logger) *Runner {
	if r == nil {
		r = SystemRand{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		interval: interval,
		rand:     r,
		logger:   logger,
		updates:  make(chan []Entity, 1),
	}
}

// Updates delivers the snapshot produced by each tick. Buffered by one; a
// stale unread snapshot is dropped in favor of the newest.
func (r *Runner) Updates() <-chan []Entity {
	return r.updates
}

// Run ticks the store until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("tracking simulation started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("tracking simulation stopped")
			return
		case <-ticker.C:
			snapshot := r.store.ApplyTick(r.rand)
			metrics.TrackingTicks.Inc()
			r.publish(snapshot)
		}
	}
}

func (r *Runner) publish(snapshot []Entity) {
	for {
		select {
		case r.updates <- snapshot:
			return
		default:
			select {
			case <-r.updates:
			default:
			}
		}
	}
}
