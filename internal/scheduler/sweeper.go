// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SAP-F-2025/quiz-service/internal/services"
)

// cronLogger routes cron's logging through slog. Routine scheduler chatter goes to debug.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// Sweeper abandons stale in-progress attempts on a cron schedule.
type Sweeper struct {
	cron     *cron.Cron
	job      cron.Job
	attempts services.AttemptService
	logger   *slog.Logger
	timeout  time.Duration
}

func NewSweeper(attempts services.AttemptService, logger *slog.Logger) *Sweeper {
	cl := cronLogger{logger: logger}
	s := &Sweeper{
		cron:     cron.New(cron.WithLogger(cl)),
		attempts: attempts,
		logger:   logger,
		timeout:  time.Minute,
	}
	// A slow sweep makes the next tick a no-op. Recover sits inside the skip
	// guard so a panicking sweep still releases it.
	s.job = cron.NewChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)).Then(cron.FuncJob(s.RunOnce))
	return s
}

// Start registers the job for schedule (standard cron or "@every 5m") and
// starts the scheduler.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddJob(schedule, s.job); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("Attempt sweeper started", "schedule", schedule)
	return nil
}

// RunOnce sweeps immediately.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.attempts.SweepStaleAttempts(ctx, time.Now())
	if err != nil {
		s.logger.Error("Attempt sweep failed", "error", err)
		return
	}
	s.logger.Debug("Attempt sweep finished", "scanned", result.Scanned, "abandoned", result.Abandoned)
}

// Stop halts the scheduler and waits for a running sweep up to ctx's deadline.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for attempt sweep to finish")
	}
}
