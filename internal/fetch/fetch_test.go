// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/tvsched/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		Timeout:    2 * time.Second,
		Retries:    2,
		Backoff:    time.Millisecond,
		MaxBackoff: 2 * time.Millisecond,
		UserAgent:  "tvsched-test",
	}
}

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tvsched-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>Programación</p>"))
	}))
	defer srv.Close()

	body, err := New(testOptions(), nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>Programación</p>", string(body))
}

func TestFetch_DecodesLatin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "Programación" with ó as the single Latin-1 byte 0xF3.
		_, _ = w.Write([]byte("<p>Programaci\xf3n</p>"))
	}))
	defer srv.Close()

	body, err := New(testOptions(), nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>Programación</p>", string(body))
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := New(testOptions(), nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_NoRetryOnNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(testOptions(), nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(testOptions(), nil).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_UsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("page"))
	}))
	defer srv.Close()

	c := cache.NewMemoryCache(0)
	defer func() { _ = c.Close() }()

	opts := testOptions()
	opts.CacheTTL = time.Minute
	f := New(opts, c)

	for i := 0; i < 3; i++ {
		body, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "page", string(body))
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(2), c.Stats().Hits)
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testOptions(), nil).Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAll_KeepsOrderAndIsolatesFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("A")) })
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })
	mux.HandleFunc("/c", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("C")) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := testOptions()
	opts.Concurrency = 2
	opts.RatePerSecond = 1000
	results := New(opts, nil).FetchAll(context.Background(), []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"})

	require.Len(t, results, 3)
	assert.Equal(t, "A", string(results[0].Body))
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, "C", string(results[2].Body))
	assert.Equal(t, srv.URL+"/c", results[2].URL)
}

func TestShouldRetry(t *testing.T) {
	other := errors.New("boom")
	assert.True(t, shouldRetry(0, other))
	assert.True(t, shouldRetry(500, other))
	assert.True(t, shouldRetry(429, other))
	assert.False(t, shouldRetry(404, other))
	assert.False(t, shouldRetry(0, context.Canceled))
}

func TestBackoffFor_Capped(t *testing.T) {
	f := New(Options{Backoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}, nil)
	for attempt := 0; attempt < 6; attempt++ {
		d := f.backoffFor(attempt)
		assert.LessOrEqual(t, d, 300*time.Millisecond+300*time.Millisecond/5+1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
	}
}
