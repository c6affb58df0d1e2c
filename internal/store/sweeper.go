package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/sente-labs/chatstore/internal/metrics"
)

// Sweeper is the eager half of expiration: a periodic pass over the whole
// store that removes entries whose TTL elapsed without anyone reading them.
// Memory stays bounded only while it runs; lazy expiry alone never reclaims
// keys that are no longer accessed.
type Sweeper struct {
	store   *Store
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewSweeper wires a sweeper to the store it maintains.
func NewSweeper(s *Store, logger *slog.Logger, rec *metrics.Recorder) *Sweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sweeper{
		store:   s,
		logger:  logger.With(slog.String("subsystem", "sweeper")),
		metrics: rec,
	}
}

// Sweep runs one eager-expiration pass. It is safe to call concurrently with
// foreground traffic; each shard is locked only for its own scan.
func (s *Sweeper) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	removed := s.store.CleanupExpired()
	s.metrics.ObserveSweep(removed)
	s.logger.Info("sweep complete",
		slog.Int("removed", removed),
		slog.Duration("elapsed", time.Since(start)))
}

// Run sweeps on a fixed interval until the context is canceled. Bootstrap
// code that schedules sweeps through an external scheduler calls Sweep
// directly instead.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
