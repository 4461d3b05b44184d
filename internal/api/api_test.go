// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/epg"
	"github.com/ManuGH/tvsched/internal/history"
	"github.com/ManuGH/tvsched/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
	snap  jobs.Snapshot
}

func (f *fakeRefresher) Run(_ context.Context) (*jobs.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &jobs.Result{Status: jobs.Status{JobID: "job-1", Programmes: 3}}, nil
}

func (f *fakeRefresher) Snapshot() jobs.Snapshot { return f.snap }

type fakeHistory struct {
	runs      []history.Run
	err       error
	lastLimit int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Run, error) {
	f.lastLimit = limit
	return f.runs, f.err
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.DataDir = t.TempDir()
	return cfg
}

func newTestServer(t *testing.T, cfg config.AppConfig, ref Refresher, hist RunLister) http.Handler {
	t.Helper()
	opts := Options{
		Version:   "v-test",
		Config:    func() config.AppConfig { return cfg },
		Refresher: ref,
	}
	if hist != nil {
		opts.History = hist
	}
	return New(opts).Handler()
}

func writeGuide(t *testing.T, cfg config.AppConfig) {
	t.Helper()
	tv := epg.GenerateXMLTV(
		[]epg.Channel{{ID: "a", DisplayName: []string{"A"}}, {ID: "b", DisplayName: []string{"B"}}},
		[]epg.Programme{
			{Channel: "a", Start: "20250106230000 -0500", Stop: "20250107001500 -0500", Title: epg.Title{Text: "Cine"}},
			{Channel: "a", Start: "20250107001500 -0500", Stop: "20250107050000 -0500", Title: epg.Title{Text: "Madrugada"}},
			{Channel: "b", Start: "20250106230000 -0500", Stop: "20250107001500 -0500", Title: epg.Title{Text: "Cine"}},
		},
	)
	require.NoError(t, epg.WriteXMLTV(tv, cfg.GuidePath()))
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	cfg := testConfig(t)
	h := newTestServer(t, cfg, &fakeRefresher{}, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz").Code)

	writeGuide(t, cfg)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz").Code)
}

func TestXMLTV(t *testing.T) {
	cfg := testConfig(t)
	h := newTestServer(t, cfg, &fakeRefresher{}, nil)

	rec := do(t, h, http.MethodGet, "/xmltv.xml")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	writeGuide(t, cfg)
	rec = do(t, h, http.MethodGet, "/xmltv.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))
	assert.Contains(t, rec.Body.String(), `<programme start="20250106230000 -0500"`)

	head := do(t, h, http.MethodHead, "/xmltv.xml")
	assert.Equal(t, http.StatusOK, head.Code)
	assert.Empty(t, head.Body.String())
}

func TestXMLTV_NotModified(t *testing.T) {
	cfg := testConfig(t)
	writeGuide(t, cfg)
	h := newTestServer(t, cfg, &fakeRefresher{}, nil)

	info, err := os.Stat(cfg.GuidePath())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/xmltv.xml", nil)
	req.Header.Set("If-Modified-Since", info.ModTime().Add(time.Hour).UTC().Format(http.TimeFormat))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestXMLTV_OversizedGuide(t *testing.T) {
	cfg := testConfig(t)
	writeGuide(t, cfg)
	require.NoError(t, os.Truncate(cfg.GuidePath(), maxGuideSize+1))
	h := newTestServer(t, cfg, &fakeRefresher{}, nil)

	rec := do(t, h, http.MethodGet, "/xmltv.xml")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "guide_too_large", body["error"])
}

func TestStatus(t *testing.T) {
	cfg := testConfig(t)
	writeGuide(t, cfg)
	ref := &fakeRefresher{snap: jobs.Snapshot{
		Running:     true,
		Last:        &jobs.Status{JobID: "j2", Error: "fetch: boom"},
		LastSuccess: &jobs.Status{JobID: "j1", Programmes: 22},
	}}
	h := newTestServer(t, cfg, ref, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var body statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v-test", body.Version)
	assert.True(t, body.Refreshing)
	require.NotNil(t, body.LastSuccess)
	assert.Equal(t, 22, body.LastSuccess.Programmes)
	require.NotNil(t, body.Guide)
	assert.Equal(t, filepath.Clean(cfg.GuidePath()), body.Guide.Path)
	assert.Positive(t, body.Guide.Size)
}

func TestHistory(t *testing.T) {
	cfg := testConfig(t)
	started := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	hist := &fakeHistory{runs: []history.Run{{
		ID:         "r1",
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
		Outcome:    history.OutcomeSuccess,
		Strategy:   "tabs",
		Points:     12,
		Channels:   map[string]int{"a": 11, "b": 11},
	}}}
	h := newTestServer(t, cfg, &fakeRefresher{}, hist)

	rec := do(t, h, http.MethodGet, "/api/v1/history?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, hist.lastLimit)

	var body []runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, int64(1500), body[0].DurationMS)
	assert.Equal(t, 22, body[0].Programmes)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/history?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/history?limit=x").Code)

	do(t, h, http.MethodGet, "/api/v1/history")
	assert.Equal(t, defaultHistoryLimit, hist.lastLimit)
}

func TestHistory_Disabled(t *testing.T) {
	h := newTestServer(t, testConfig(t), &fakeRefresher{}, nil)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/history").Code)
}

func TestHistory_StoreErrorHidden(t *testing.T) {
	hist := &fakeHistory{err: errors.New("disk I/O error at /secret/path")}
	h := newTestServer(t, testConfig(t), &fakeRefresher{}, hist)

	rec := do(t, h, http.MethodGet, "/api/v1/history")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/secret/path")
	assert.Contains(t, rec.Body.String(), "internal_error")
}

func TestProgrammes(t *testing.T) {
	cfg := testConfig(t)
	writeGuide(t, cfg)
	h := newTestServer(t, cfg, &fakeRefresher{}, nil)

	decode := func(rec *httptest.ResponseRecorder) []programmeResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out []programmeResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	assert.Len(t, decode(do(t, h, http.MethodGet, "/api/v1/programmes")), 3)

	got := decode(do(t, h, http.MethodGet, "/api/v1/programmes?channel=a"))
	require.Len(t, got, 2)
	assert.Equal(t, "Cine", got[0].Title)

	got = decode(do(t, h, http.MethodGet, "/api/v1/programmes?channel=a&date=2025-01-07"))
	require.Len(t, got, 1)
	assert.Equal(t, "Madrugada", got[0].Title)
	assert.Equal(t, "2025-01-07T00:15:00-05:00", got[0].Start.Format(time.RFC3339))

	assert.Empty(t, decode(do(t, h, http.MethodGet, "/api/v1/programmes?channel=zzz")))
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/programmes?date=07-01-2025").Code)
}

func TestProgrammes_NoGuide(t *testing.T) {
	h := newTestServer(t, testConfig(t), &fakeRefresher{}, nil)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/programmes").Code)
}

func TestRefresh(t *testing.T) {
	ref := &fakeRefresher{}
	h := newTestServer(t, testConfig(t), ref, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	var st jobs.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "job-1", st.JobID)
	assert.Equal(t, 1, ref.calls)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/v1/refresh").Code)
}

func TestRefresh_Busy(t *testing.T) {
	h := newTestServer(t, testConfig(t), &fakeRefresher{err: jobs.ErrBusy}, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestRefresh_FailureReportsStageOnly(t *testing.T) {
	err := &jobs.StageError{Stage: jobs.StageFetch, Err: errors.New("dial tcp 10.0.0.5:443: refused")}
	h := newTestServer(t, testConfig(t), &fakeRefresher{err: err}, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "refresh_failed", body["error"])
	assert.Equal(t, jobs.StageFetch, body["stage"])
	assert.False(t, strings.Contains(rec.Body.String(), "10.0.0.5"))
}

func TestRefresh_RateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.API.RefreshRateLimit = 1
	ref := &fakeRefresher{}
	h := newTestServer(t, cfg, ref, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/refresh").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/api/v1/refresh").Code)
	assert.Equal(t, 1, ref.calls)
}

func TestMetricsAndNotFound(t *testing.T) {
	h := newTestServer(t, testConfig(t), &fakeRefresher{}, nil)

	do(t, h, http.MethodGet, "/healthz")
	rec := do(t, h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tvsched_http_request_duration_seconds")

	rec = do(t, h, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
