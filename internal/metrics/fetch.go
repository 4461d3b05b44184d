// SPDX-License-Identifier: MIT

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsched_fetch_requests_total",
		Help: "Schedule page requests by status code (0 = transport error)",
	}, []string{"code", "retry"})

	fetchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tvsched_fetch_duration_seconds",
		Help:    "Schedule page request latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	fetchCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsched_fetch_cache_total",
		Help: "Page cache lookups by result",
	}, []string{"result"}) // result=hit|miss
)

// RecordFetchAttempt records one HTTP attempt.
func RecordFetchAttempt(status int, d time.Duration, willRetry bool) {
	fetchRequestsTotal.WithLabelValues(strconv.Itoa(status), strconv.FormatBool(willRetry)).Inc()
	fetchDurationSeconds.Observe(d.Seconds())
}

// IncFetchCache records a cache lookup.
func IncFetchCache(hit bool) {
	if hit {
		fetchCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	fetchCacheTotal.WithLabelValues("miss").Inc()
}
