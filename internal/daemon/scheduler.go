// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/tvsched/internal/jobs"
	"github.com/rs/zerolog"
)

// Refresher runs one refresh. *jobs.Runner implements it.
type Refresher interface {
	Run(ctx context.Context) (*jobs.Result, error)
}

// Scheduler runs a refresh at startup and then every interval. A zero
// interval disables the periodic refresh; SetInterval can enable it later.
type Scheduler struct {
	runner   Refresher
	logger   zerolog.Logger
	interval time.Duration
	resetCh  chan time.Duration
}

// NewScheduler creates a Scheduler.
func NewScheduler(runner Refresher, interval time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		interval: interval,
		resetCh:  make(chan time.Duration, 1),
	}
}

// SetInterval changes the interval; the next refresh is rescheduled from now.
// It never blocks and only the latest pending value is kept.
func (s *Scheduler) SetInterval(d time.Duration) {
	for {
		select {
		case s.resetCh <- d:
			return
		default:
		}
		select {
		case <-s.resetCh:
		default:
		}
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.tick(ctx)

	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	arm := func() {
		stopTimer(timer)
		if s.interval > 0 {
			timer.Reset(s.interval)
		}
	}
	arm()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			s.tick(ctx)
			arm()
		case d := <-s.resetCh:
			if d != s.interval {
				s.logger.Info().
					Str("event", "scheduler.interval_changed").
					Dur("old", s.interval).
					Dur("new", d).
					Msg("refresh interval changed")
			}
			s.interval = d
			arm()
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.runner.Run(ctx); err != nil {
		if errors.Is(err, jobs.ErrBusy) {
			s.logger.Debug().Str("event", "scheduler.skipped_busy").Msg("refresh already running")
			return
		}
		// the refresh itself logs the failure details
		s.logger.Warn().Str("event", "scheduler.refresh_failed").Str("stage", jobs.StageOf(err)).Msg("scheduled refresh failed")
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
