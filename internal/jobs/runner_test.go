// SPDX-License-Identifier: MIT
package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/tvsched/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingFetcher holds FetchAll until release is closed.
type blockingFetcher struct {
	inner   PageFetcher
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingFetcher) FetchAll(ctx context.Context, urls []string) []fetch.Result {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.inner.FetchAll(ctx, urls)
}

func TestRunner_RejectsConcurrentRuns(t *testing.T) {
	cfg := testConfig(t)
	bf := &blockingFetcher{
		inner:   &fakeFetcher{pages: map[string]string{sourceURL: readFixture(t, "week.html")}},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	deps, _, _ := newDeps(t, cfg, nil)
	deps.Fetcher = bf
	r := NewRunner(func() Deps { return deps })

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()

	<-bf.entered
	assert.True(t, r.Running())
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(bf.release)
	require.NoError(t, <-done)
	assert.False(t, r.Running())

	snap := r.Snapshot()
	require.NotNil(t, snap.Last)
	require.NotNil(t, snap.LastSuccess)
	assert.Equal(t, snap.Last.JobID, snap.LastSuccess.JobID)
	assert.Equal(t, monday, r.LastSuccessAt())
}

func TestRunner_KeepsLastSuccessAcrossFailures(t *testing.T) {
	cfg := testConfig(t)
	f := &fakeFetcher{pages: map[string]string{sourceURL: readFixture(t, "week.html")}}
	deps, _, _ := newDeps(t, cfg, f)
	r := NewRunner(func() Deps { return deps })

	assert.True(t, r.LastSuccessAt().IsZero())
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	first := r.Snapshot().LastSuccess.JobID

	f.pages = nil
	deps.Clock = func() time.Time { return monday.Add(time.Hour) }
	_, err = r.Run(context.Background())
	require.Error(t, err)

	snap := r.Snapshot()
	assert.NotEqual(t, first, snap.Last.JobID)
	assert.NotEmpty(t, snap.Last.Error)
	assert.Equal(t, first, snap.LastSuccess.JobID)
}
