// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/epg"
	"github.com/ManuGH/tvsched/internal/fetch"
	"github.com/ManuGH/tvsched/internal/history"
	"github.com/ManuGH/tvsched/internal/schedule"
)

// ErrNoProgrammes means a refresh produced an empty guide. The previously
// published guide is left in place.
var ErrNoProgrammes = errors.New("no programmes extracted")

// Pipeline stages, used for failure metrics and run history.
const (
	StageConfig = "config"
	StageFetch  = "fetch"
	StageSource = "source"
	StageBuild  = "build"
	StageWrite  = "write"
)

// StageError tags a refresh failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the stage of a refresh error, or "" when err carries none.
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// PageFetcher downloads schedule pages. *fetch.Fetcher implements it.
type PageFetcher interface {
	FetchAll(ctx context.Context, urls []string) []fetch.Result
}

// RunRecorder stores finished runs. *history.Store implements it.
type RunRecorder interface {
	Record(ctx context.Context, run history.Run) error
}

// MetricsRecorder receives refresh measurements.
type MetricsRecorder interface {
	RecordRefreshSuccess(duration time.Duration, at time.Time)
	IncRefreshFailure(stage string)
	RecordProgrammes(counts map[string]int)
	RecordPoints(n int)
	IncGlitchKept()
	IncStrategy(strategy, outcome string)
	IncXMLTVWriteError()
}

// Options controls one refresh.
type Options struct {
	// DryRun builds the guide without writing it.
	DryRun bool
}

// Deps holds everything a refresh needs. Config is required; Fetcher defaults
// to a fetcher built from Config, Metrics to the Prometheus collectors and
// Clock to time.Now. History is optional.
type Deps struct {
	Config  config.AppConfig
	Fetcher PageFetcher
	History RunRecorder
	Metrics MetricsRecorder
	Clock   func() time.Time
	Options Options
}

// PageStatus describes how one fetched page was read.
type PageStatus struct {
	URL      string `json:"url"`
	Strategy string `json:"strategy,omitempty"`
	Panels   int    `json:"panels"`
	Error    string `json:"error,omitempty"`
}

// Status summarises a refresh.
type Status struct {
	JobID      string         `json:"job_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Points     int            `json:"points"`
	Programmes int            `json:"programmes"`
	Channels   map[string]int `json:"channels"`
	Pages      []PageStatus   `json:"pages"`
	GuidePath  string         `json:"guide_path,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Strategy returns the strategy of the first page that was read, if any.
func (s Status) Strategy() string {
	for _, p := range s.Pages {
		if p.Strategy != "" {
			return p.Strategy
		}
	}
	return ""
}

// Result is a refresh's output: its status, the aggregated timeline and the
// guide document that was (or, for a dry run, would have been) written.
type Result struct {
	Status     Status
	Programmes []schedule.Programme
	Guide      epg.TV
}
