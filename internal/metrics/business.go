// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus metrics for guide refreshes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsched_refresh_total",
		Help: "Guide refreshes by outcome",
	}, []string{"outcome"}) // outcome=success|failure

	refreshFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsched_refresh_failures_total",
		Help: "Total number of refresh failures by stage",
	}, []string{"stage"}) // stage=config|fetch|source|build|write

	refreshDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tvsched_refresh_duration_seconds",
		Help:    "Time spent on a full guide refresh",
		Buckets: prometheus.DefBuckets,
	})

	lastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvsched_last_success_timestamp_seconds",
		Help: "Unix time of the last successful refresh",
	})

	programmesPerChannel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tvsched_programmes",
		Help: "Programmes written per channel in the last successful refresh",
	}, []string{"channel"})

	pointsExtracted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvsched_points_extracted",
		Help: "Time points extracted in the last refresh",
	})

	glitchesKept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvsched_timeline_glitches_total",
		Help: "Backward clock jumps kept on the working day instead of rolling over",
	})

	strategyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsched_source_strategy_total",
		Help: "Source strategy attempts by strategy and outcome",
	}, []string{"strategy", "outcome"}) // outcome=success|empty|error

	xmltvWriteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tvsched_xmltv_write_errors_total",
		Help: "Total number of XMLTV write failures",
	})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvsched_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})
)

// RecordRefreshSuccess records a completed refresh.
func RecordRefreshSuccess(durationSeconds float64, unixTime int64) {
	refreshTotal.WithLabelValues("success").Inc()
	refreshDurationSeconds.Observe(durationSeconds)
	lastSuccessTimestamp.Set(float64(unixTime))
}

// IncRefreshFailure records a failed refresh and the stage that failed.
func IncRefreshFailure(stage string) {
	refreshTotal.WithLabelValues("failure").Inc()
	refreshFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordProgrammes replaces the per-channel programme gauges.
func RecordProgrammes(counts map[string]int) {
	programmesPerChannel.Reset()
	for ch, n := range counts {
		programmesPerChannel.WithLabelValues(ch).Set(float64(n))
	}
}

func RecordPoints(n int)  { pointsExtracted.Set(float64(n)) }
func IncGlitchKept()      { glitchesKept.Inc() }
func IncXMLTVWriteError() { xmltvWriteErrors.Inc() }

// IncStrategy records one strategy attempt.
func IncStrategy(strategy, outcome string) {
	strategyTotal.WithLabelValues(strategy, outcome).Inc()
}

// IncConfigReload records a configuration reload attempt.
func IncConfigReload(ok bool) {
	if ok {
		configReloads.WithLabelValues("success").Inc()
		return
	}
	configReloads.WithLabelValues("failure").Inc()
}
