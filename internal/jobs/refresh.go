// SPDX-License-Identifier: MIT

// Package jobs runs the guide refresh: fetch the schedule pages, read them,
// build the programme timeline and publish the XMLTV guide.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/epg"
	"github.com/ManuGH/tvsched/internal/fetch"
	"github.com/ManuGH/tvsched/internal/history"
	xglog "github.com/ManuGH/tvsched/internal/log"
	"github.com/ManuGH/tvsched/internal/schedule"
	"github.com/ManuGH/tvsched/internal/source"
	"github.com/ManuGH/tvsched/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FetchOptions derives fetcher settings from cfg.
func FetchOptions(cfg config.AppConfig) fetch.Options {
	return fetch.Options{
		Timeout:       cfg.Fetch.Timeout,
		Retries:       cfg.Fetch.Retries,
		UserAgent:     cfg.Source.UserAgent,
		Concurrency:   cfg.Fetch.Concurrency,
		RatePerSecond: cfg.Fetch.RatePerSecond,
		CacheTTL:      cfg.Fetch.CacheTTL,
	}
}

// Registry builds the strategy registry from cfg.
func Registry(cfg config.AppConfig) (*source.Registry, error) {
	mode, err := schedule.ParseMode(cfg.Source.TimeMode)
	if err != nil {
		return nil, err
	}
	sel := source.Selectors{
		Tabs:     cfg.Source.Selectors.Tabs,
		Sections: cfg.Source.Selectors.Sections,
		Day:      cfg.Source.Selectors.Day,
		Card:     cfg.Source.Selectors.Card,
		Time:     cfg.Source.Selectors.Time,
		Title:    cfg.Source.Selectors.Title,
	}
	return source.DefaultRegistry(sel, mode, cfg.Source.Markers), nil
}

// Refresh runs one refresh. On success the guide has been written to
// cfg.GuidePath() (unless Options.DryRun). On failure the previous guide is
// untouched and the error is a *StageError. A Result is returned in both
// cases; on failure it carries the partial status.
func Refresh(ctx context.Context, deps Deps) (*Result, error) {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = PrometheusMetrics()
	}
	cfg := deps.Config

	jobID := uuid.NewString()
	ctx = xglog.ContextWithJobID(ctx, jobID)
	ctx, span := telemetry.Tracer("tvsched/jobs").Start(ctx, "refresh",
		trace.WithAttributes(telemetry.JobAttributes(jobID, "running", 0)...))
	defer span.End()
	logger := xglog.WithTraceContext(ctx, xglog.WithComponentFromContext(ctx, "jobs"))

	res := &Result{Status: Status{JobID: jobID, StartedAt: deps.Clock()}}
	logger.Info().Str(xglog.FieldEvent, "refresh.start").Str(xglog.FieldURL, cfg.Source.URL).Msg("starting refresh")

	err := run(ctx, deps, res, logger)
	res.Status.FinishedAt = deps.Clock()
	dur := res.Status.FinishedAt.Sub(res.Status.StartedAt)

	if err != nil {
		res.Status.Error = err.Error()
		stage := StageOf(err)
		deps.Metrics.IncRefreshFailure(stage)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(telemetry.JobAttributes(jobID, history.OutcomeFailed, dur.Milliseconds())...)
		span.SetAttributes(telemetry.ErrorAttributes(stage)...)
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "refresh.failed").
			Str(xglog.FieldStage, stage).
			Dur("duration", dur).
			Msg("refresh failed")
	} else {
		deps.Metrics.RecordRefreshSuccess(dur, res.Status.FinishedAt)
		span.SetAttributes(telemetry.JobAttributes(jobID, history.OutcomeSuccess, dur.Milliseconds())...)
		span.SetAttributes(telemetry.GuideAttributes(cfg.Timeline.Days, len(res.Status.Channels), res.Status.Programmes)...)
		logger.Info().
			Str(xglog.FieldEvent, "refresh.success").
			Str(xglog.FieldPath, res.Status.GuidePath).
			Int(xglog.FieldPoints, res.Status.Points).
			Int(xglog.FieldProgrammes, res.Status.Programmes).
			Dict("channels", channelDict(res.Status.Channels)).
			Dur("duration", dur).
			Msg("refresh completed")
	}

	recordRun(ctx, deps.History, res.Status, err, logger)
	return res, err
}

func run(ctx context.Context, deps Deps, res *Result, logger zerolog.Logger) error {
	cfg := deps.Config

	if err := validateConfig(cfg, deps.Options.DryRun); err != nil {
		return &StageError{Stage: StageConfig, Err: err}
	}
	loc, err := cfg.Timeline.Location()
	if err != nil {
		return &StageError{Stage: StageConfig, Err: err}
	}
	router, err := cfg.Router()
	if err != nil {
		return &StageError{Stage: StageConfig, Err: err}
	}
	reg, err := Registry(cfg)
	if err != nil {
		return &StageError{Stage: StageConfig, Err: err}
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(FetchOptions(cfg), nil)
	}

	today := schedule.Midnight(deps.Clock(), loc)
	reqs := source.Requests(cfg.Source.URL, cfg.Source.Cities, today, cfg.Timeline.Days)
	urls := make([]string, len(reqs))
	for i, r := range reqs {
		urls[i] = r.URL
	}
	results := fetcher.FetchAll(ctx, urls)

	tl := newTimeline(cfg, router, deps.Metrics, logger)
	var progs []schedule.Programme
	var firstErr error
	read := 0

	for i, req := range reqs {
		r := results[i]
		page := PageStatus{URL: req.URL}
		if r.Err != nil {
			page.Error = r.Err.Error()
			res.Status.Pages = append(res.Status.Pages, page)
			if firstErr == nil {
				firstErr = &StageError{Stage: StageFetch, Err: r.Err}
			}
			logger.Warn().Err(r.Err).
				Str(xglog.FieldEvent, "page.fetch_failed").
				Str(xglog.FieldURL, req.URL).
				Msg("schedule page not fetched")
			continue
		}

		located, err := source.ReadPage(reg, cfg.Source.Strategies, r.Body, req)
		for _, a := range located.Attempts {
			deps.Metrics.IncStrategy(a.Strategy, a.Outcome())
		}
		page.Strategy = located.Strategy
		page.Panels = len(located.Panels)
		if err != nil {
			page.Error = err.Error()
			res.Status.Pages = append(res.Status.Pages, page)
			if firstErr == nil {
				firstErr = &StageError{Stage: StageSource, Err: fmt.Errorf("%s: %w", req.URL, err)}
			}
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "page.schedule_missing").
				Str(xglog.FieldURL, req.URL).
				Msg("no usable schedule on page")
			continue
		}
		res.Status.Pages = append(res.Status.Pages, page)
		read++

		trace.SpanFromContext(ctx).AddEvent("page.read",
			trace.WithAttributes(telemetry.SourceAttributes(located.Strategy, len(located.Panels))...))
		logger.Debug().
			Str(xglog.FieldEvent, "page.read").
			Str(xglog.FieldURL, req.URL).
			Str(xglog.FieldStrategy, located.Strategy).
			Int("panels", len(located.Panels)).
			Msg("schedule page read")

		progs = append(progs, tl.process(req, located.Panels)...)
	}

	// Single failed pages of a multi-page source only leave gaps; a source
	// with no readable page at all fails.
	if read == 0 {
		if firstErr == nil {
			firstErr = &StageError{Stage: StageSource, Err: source.ErrScheduleMissing}
		}
		return firstErr
	}

	progs = schedule.Aggregate(progs)
	counts := schedule.CountByChannel(progs)
	res.Programmes = progs
	res.Status.Points = tl.points
	res.Status.Programmes = len(progs)
	res.Status.Channels = counts
	deps.Metrics.RecordPoints(tl.points)

	if len(progs) == 0 && cfg.Refresh.RequireProgrammes {
		return &StageError{Stage: StageBuild, Err: ErrNoProgrammes}
	}

	res.Guide = epg.BuildGuide(cfg.ScheduleChannels(), progs, loc)
	deps.Metrics.RecordProgrammes(withZeroes(counts, cfg.ChannelIDs()))

	if deps.Options.DryRun {
		return nil
	}
	path := cfg.GuidePath()
	if err := writeGuide(ctx, path, res.Guide); err != nil {
		deps.Metrics.IncXMLTVWriteError()
		return &StageError{Stage: StageWrite, Err: err}
	}
	res.Status.GuidePath = path
	return nil
}

// withZeroes reports configured channels that received nothing as 0.
func withZeroes(counts map[string]int, ids []string) map[string]int {
	out := maps.Clone(counts)
	if out == nil {
		out = map[string]int{}
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = 0
		}
	}
	return out
}

func channelDict(counts map[string]int) *zerolog.Event {
	d := zerolog.Dict()
	for ch, n := range counts {
		d = d.Int(ch, n)
	}
	return d
}

func recordRun(ctx context.Context, rec RunRecorder, st Status, err error, logger zerolog.Logger) {
	if rec == nil {
		return
	}
	run := history.Run{
		ID:         st.JobID,
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
		Outcome:    history.OutcomeSuccess,
		Strategy:   st.Strategy(),
		Points:     st.Points,
		Channels:   st.Channels,
	}
	if err != nil {
		run.Outcome = history.OutcomeFailed
		run.Stage = StageOf(err)
		run.Error = err.Error()
	}
	// The run is recorded even if the refresh context was cancelled.
	if rerr := rec.Record(context.WithoutCancel(ctx), run); rerr != nil && !errors.Is(rerr, context.Canceled) {
		logger.Warn().Err(rerr).Str(xglog.FieldEvent, "history.record_failed").Msg("refresh run not recorded")
	}
}
