package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/quiz-service/internal/services"
)

// countingAttempts only implements the sweep.
type countingAttempts struct {
	services.AttemptService
	calls atomic.Int32
	err   error
	// release, when set, holds every sweep until it is closed
	release chan struct{}
	panics  bool
}

func (c *countingAttempts) SweepStaleAttempts(context.Context, time.Time) (*services.SweepResult, error) {
	c.calls.Add(1)
	if c.release != nil {
		<-c.release
	}
	if c.panics {
		panic("sweep exploded")
	}
	if c.err != nil {
		return nil, c.err
	}
	return &services.SweepResult{Scanned: 2, Abandoned: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweeper_RunsOnSchedule(t *testing.T) {
	attempts := &countingAttempts{}
	s := NewSweeper(attempts, discardLogger())

	require.NoError(t, s.Start("@every 1s"))
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return attempts.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	s := NewSweeper(&countingAttempts{}, discardLogger())
	assert.Error(t, s.Start("every now and then"))
}

func TestSweeper_RunOnceSurvivesErrors(t *testing.T) {
	attempts := &countingAttempts{err: errors.New("db down")}
	s := NewSweeper(attempts, discardLogger())

	s.RunOnce()
	s.RunOnce()
	assert.Equal(t, int32(2), attempts.calls.Load())
}

func TestSweeper_SkipsOverlappingRuns(t *testing.T) {
	attempts := &countingAttempts{release: make(chan struct{})}
	s := NewSweeper(attempts, discardLogger())

	done := make(chan struct{})
	go func() {
		s.job.Run()
		close(done)
	}()
	require.Eventually(t, func() bool { return attempts.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// a tick while the first sweep is still running returns without sweeping
	s.job.Run()
	assert.Equal(t, int32(1), attempts.calls.Load())

	close(attempts.release)
	<-done

	s.job.Run()
	assert.Equal(t, int32(2), attempts.calls.Load())
}

func TestSweeper_RecoversPanics(t *testing.T) {
	attempts := &countingAttempts{panics: true}
	s := NewSweeper(attempts, discardLogger())

	assert.NotPanics(t, func() { s.job.Run() })
	assert.NotPanics(t, func() { s.job.Run() })
	assert.Equal(t, int32(2), attempts.calls.Load())
}
