// SPDX-License-Identifier: MIT

package jobs

import (
	"time"

	"github.com/ManuGH/tvsched/internal/metrics"
)

// promRecorder forwards to the process-wide Prometheus collectors.
type promRecorder struct{}

func (promRecorder) RecordRefreshSuccess(d time.Duration, at time.Time) {
	metrics.RecordRefreshSuccess(d.Seconds(), at.Unix())
}
func (promRecorder) IncRefreshFailure(stage string)         { metrics.IncRefreshFailure(stage) }
func (promRecorder) RecordProgrammes(counts map[string]int) { metrics.RecordProgrammes(counts) }
func (promRecorder) RecordPoints(n int)                     { metrics.RecordPoints(n) }
func (promRecorder) IncGlitchKept()                         { metrics.IncGlitchKept() }
func (promRecorder) IncStrategy(strategy, outcome string)   { metrics.IncStrategy(strategy, outcome) }
func (promRecorder) IncXMLTVWriteError()                    { metrics.IncXMLTVWriteError() }

// PrometheusMetrics returns the recorder used when Deps.Metrics is nil.
func PrometheusMetrics() MetricsRecorder { return promRecorder{} }
