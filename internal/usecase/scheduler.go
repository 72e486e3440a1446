package usecase

import (
	"context"
	"log/slog"
	"time"

	"EditaisScanner/internal/logging"
	"EditaisScanner/internal/ports"
)

// Scheduler wires the periodic trigger with the pipeline use case.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, logger: logger}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		n := s.pipeline.Run(ctx)
		s.logger.Info("scheduled run completed", "trigger", trigger.Format(time.RFC3339), "new", n)
	}

	return s.driver.Start(ctx, job)
}

// Stop waits for a running job and tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
