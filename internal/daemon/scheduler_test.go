// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/tvsched/internal/jobs"
	"github.com/ManuGH/tvsched/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Run(context.Context) (*jobs.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &jobs.Result{}, nil
}

func runScheduler(t *testing.T, s *Scheduler) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func TestScheduler_RunsAtStartAndOnInterval(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ref := &countingRefresher{}
	s := NewScheduler(ref, 20*time.Millisecond, log.WithComponent("test"))
	cancel, done := runScheduler(t, s)

	assert.Eventually(t, func() bool { return ref.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_ZeroIntervalRunsOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ref := &countingRefresher{}
	s := NewScheduler(ref, 0, log.WithComponent("test"))
	cancel, done := runScheduler(t, s)

	assert.Eventually(t, func() bool { return ref.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), ref.calls.Load())

	s.SetInterval(10 * time.Millisecond)
	assert.Eventually(t, func() bool { return ref.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_FailuresDoNotStopLoop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ref := &countingRefresher{err: &jobs.StageError{Stage: jobs.StageFetch, Err: errors.New("down")}}
	s := NewScheduler(ref, 10*time.Millisecond, log.WithComponent("test"))
	cancel, done := runScheduler(t, s)

	assert.Eventually(t, func() bool { return ref.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestScheduler_SetIntervalNeverBlocks(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, 0, log.WithComponent("test"))
	for i := range 5 {
		s.SetInterval(time.Duration(i) * time.Second)
	}
	assert.Equal(t, 4*time.Second, <-s.resetCh)
}
