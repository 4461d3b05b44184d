// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRefresh(t *testing.T) {
	before := testutil.ToFloat64(refreshTotal.WithLabelValues("success"))
	RecordRefreshSuccess(1.5, 1736157600)
	assert.Equal(t, before+1, testutil.ToFloat64(refreshTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1736157600), testutil.ToFloat64(lastSuccessTimestamp))

	failBefore := testutil.ToFloat64(refreshFailuresTotal.WithLabelValues("fetch"))
	IncRefreshFailure("fetch")
	assert.Equal(t, failBefore+1, testutil.ToFloat64(refreshFailuresTotal.WithLabelValues("fetch")))
}

func TestRecordProgrammes_ResetsStaleChannels(t *testing.T) {
	RecordProgrammes(map[string]int{"a": 3, "b": 4})
	RecordProgrammes(map[string]int{"a": 5})

	assert.Equal(t, 1, testutil.CollectAndCount(programmesPerChannel))
	assert.Equal(t, float64(5), testutil.ToFloat64(programmesPerChannel.WithLabelValues("a")))
}

func TestStrategyAndFetchCounters(t *testing.T) {
	before := testutil.ToFloat64(strategyTotal.WithLabelValues("tabs", "empty"))
	IncStrategy("tabs", "empty")
	assert.Equal(t, before+1, testutil.ToFloat64(strategyTotal.WithLabelValues("tabs", "empty")))

	hits := testutil.ToFloat64(fetchCacheTotal.WithLabelValues("hit"))
	IncFetchCache(true)
	assert.Equal(t, hits+1, testutil.ToFloat64(fetchCacheTotal.WithLabelValues("hit")))

	RecordFetchAttempt(503, 20*time.Millisecond, true)
	assert.GreaterOrEqual(t, testutil.ToFloat64(fetchRequestsTotal.WithLabelValues("503", "true")), float64(1))
}

func TestPromhttpExposure(t *testing.T) {
	IncGlitchKept()
	RecordPoints(12)
	IncXMLTVWriteError()
	IncConfigReload(true)

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	for _, name := range []string{
		"tvsched_timeline_glitches_total",
		"tvsched_points_extracted 12",
		"tvsched_xmltv_write_errors_total",
		"tvsched_config_reloads_total",
	} {
		assert.True(t, strings.Contains(string(body), name), "missing %s", name)
	}
}
