package core

// scheduler.go runs background maintenance for the load history.
//
// The pruner deletes history older than the retention window. It runs once
// at start, then on every tick, and stops when its context is cancelled.
// A failed pass is logged; the next tick tries again.

import (
	"context"
	"log/slog"
	"time"
)

// PruneConfig configures the history pruner.
type PruneConfig struct {
	Retention     time.Duration // Age beyond which loads are deleted (default: 30 days)
	CheckInterval time.Duration // How often to run (default: 1h)
}

const (
	DefaultHistoryRetention = 30 * 24 * time.Hour
	DefaultPruneInterval    = time.Hour
)

func (c PruneConfig) withDefaults() PruneConfig {
	if c.Retention <= 0 {
		c.Retention = DefaultHistoryRetention
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultPruneInterval
	}
	return c
}

// StartHistoryPruner blocks, pruning the history periodically until ctx is
// cancelled. Run it in its own goroutine. It returns at once when history is
// disabled.
func (s *Service) StartHistoryPruner(ctx context.Context, cfg PruneConfig) {
	if s.history == nil {
		return
	}
	cfg = cfg.withDefaults()

	slog.Info("history pruner started",
		"retention", cfg.Retention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.runPruneJob(ctx, cfg, time.Now())

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history pruner stopped")
			return
		case now := <-ticker.C:
			s.runPruneJob(ctx, cfg, now)
		}
	}
}

// runPruneJob performs one prune pass.
func (s *Service) runPruneJob(ctx context.Context, cfg PruneConfig, now time.Time) {
	start := time.Now()
	cutoff := now.Add(-cfg.Retention)

	pruned, err := s.history.PruneBefore(ctx, cutoff)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned load history",
		"loads_pruned", pruned,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
