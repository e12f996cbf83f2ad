package usecase

import (
	"context"
	"log/slog"
	"time"

	"ContentRefresher/internal/ports"
)

// Scheduler wires the interval driver with the refresh use case.
type Scheduler struct {
	driver    ports.Scheduler
	refresher *Refresher
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring refreshes.
func NewScheduler(driver ports.Scheduler, refresher *Refresher, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, refresher: refresher, logger: logger}
}

// Start registers the refresh job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.refresher == nil {
		return nil
	}

	job := func(trigger time.Time) {
		summary, err := s.refresher.Refresh(ctx)
		if s.logger == nil {
			return
		}
		if err != nil {
			s.logger.Error("scheduled refresh failed", "trigger", trigger.Format(time.RFC3339), "error", err)
			return
		}
		s.logger.Info("scheduled refresh done", "refresh_cycle", summary.RefreshCycle, "added", summary.ArticlesAdded, "failed", summary.Failed)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
