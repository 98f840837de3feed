package scheduler

import (
	"context"
	"log/slog"
	"time"

	"tap_amazon_ads/internal/domain"
)

type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncStats, error)
}

// Scheduler repeats a sync on a fixed interval until ctx is cancelled.
// Runs never overlap; a tick that fires during a long run is dropped.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(syncer Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		logger:   logger,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

// runSync logs failures and carries on; the next tick retries from the
// last persisted bookmarks.
func (s *Scheduler) runSync(ctx context.Context) {
	stats, err := s.syncer.Sync(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("sync failed", "error", err)
		return
	}
	s.logger.Info("scheduled sync finished",
		"records", stats.Records,
		"duration", stats.Duration,
	)
}
