// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBusy is returned by Runner.Run while another refresh is in progress.
var ErrBusy = errors.New("refresh already in progress")

// Runner serialises refreshes and remembers the outcome of the latest ones.
// The scheduled loop and manual triggers share one Runner.
type Runner struct {
	deps    func() Deps
	running atomic.Bool

	mu          sync.RWMutex
	last        *Status
	lastSuccess *Status
}

// NewRunner returns a Runner; deps is called before every refresh so that
// configuration reloads take effect on the next run.
func NewRunner(deps func() Deps) *Runner {
	return &Runner{deps: deps}
}

// Run performs a refresh unless one is already running, in which case it
// returns ErrBusy immediately.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer r.running.Store(false)

	res, err := Refresh(ctx, r.deps())
	if res != nil {
		st := res.Status
		r.mu.Lock()
		r.last = &st
		if err == nil {
			r.lastSuccess = &st
		}
		r.mu.Unlock()
	}
	return res, err
}

// Running reports whether a refresh is in progress.
func (r *Runner) Running() bool { return r.running.Load() }

// Snapshot is what the runner knows about past refreshes.
type Snapshot struct {
	Running     bool    `json:"running"`
	Last        *Status `json:"last,omitempty"`
	LastSuccess *Status `json:"last_success,omitempty"`
}

// Snapshot returns copies of the latest statuses.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{Running: r.running.Load()}
	if r.last != nil {
		l := *r.last
		s.Last = &l
	}
	if r.lastSuccess != nil {
		l := *r.lastSuccess
		s.LastSuccess = &l
	}
	return s
}

// LastSuccessAt is the finish time of the latest successful refresh, or zero.
func (r *Runner) LastSuccessAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastSuccess == nil {
		return time.Time{}
	}
	return r.lastSuccess.FinishedAt
}
