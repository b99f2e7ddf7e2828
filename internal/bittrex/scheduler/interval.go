package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// IntervalRunner runs Task once at startup and then on every tick of Interval
// until the context is cancelled. Task errors are logged and do not stop the loop.
type IntervalRunner struct {
	Interval time.Duration
	Task     func(ctx context.Context) error
	Logger   *zap.Logger
}

// Run blocks until ctx is done and returns nil on cancellation.
func (r *IntervalRunner) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}
	if r.Task == nil {
		return errors.New("scheduler: task is nil")
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Run immediately once at startup
	r.runOnce(ctx, logger)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			r.runOnce(ctx, logger)
		}
	}
}

func (r *IntervalRunner) runOnce(ctx context.Context, logger *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := r.Task(ctx); err != nil {
		logger.Warn("scheduled task failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	logger.Debug("scheduled task finished", zap.Duration("elapsed", time.Since(start)))
}
