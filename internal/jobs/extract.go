// SPDX-License-Identifier: MIT

package jobs

import (
	"sort"
	"time"

	"github.com/ManuGH/tvsched/internal/config"
	xglog "github.com/ManuGH/tvsched/internal/log"
	"github.com/ManuGH/tvsched/internal/routing"
	"github.com/ManuGH/tvsched/internal/schedule"
	"github.com/ManuGH/tvsched/internal/source"
	"github.com/rs/zerolog"
)

// timeline turns located panels into programmes. It holds per-refresh
// settings; process is called once per page.
type timeline struct {
	router    *routing.Router
	denylist  []string
	threshold time.Duration
	duration  time.Duration
	sortClock bool
	metrics   MetricsRecorder
	logger    zerolog.Logger

	points int
}

func newTimeline(cfg config.AppConfig, router *routing.Router, m MetricsRecorder, logger zerolog.Logger) *timeline {
	return &timeline{
		router:    router,
		denylist:  denylist(cfg),
		threshold: cfg.Timeline.RolloverThreshold,
		duration:  cfg.Timeline.DefaultDuration,
		sortClock: cfg.Timeline.SortByClock,
		metrics:   m,
		logger:    logger,
	}
}

// denylist extends the built-in labels with configured city and marker names,
// which appear as header lines on some pages.
func denylist(cfg config.AppConfig) []string {
	out := append([]string(nil), schedule.DefaultDenylist...)
	extra := make([]string, 0, len(cfg.Source.Cities)+len(cfg.Source.Markers))
	for c := range cfg.Source.Cities {
		extra = append(extra, c)
	}
	for m := range cfg.Source.Markers {
		extra = append(extra, m)
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// process extracts, normalizes, routes and builds every segment of the page's
// panels. Each segment is an independent channel-day sequence.
func (t *timeline) process(req source.Request, panels []source.Panel) []schedule.Programme {
	var out []schedule.Programme
	for _, p := range panels {
		day := p.Anchor.Format("2006-01-02")
		for _, seg := range p.Segments {
			opts := schedule.ExtractOptions{Mode: p.Mode, Denylist: t.denylist, SortByClock: t.sortClock}
			var pts []schedule.TimePoint
			if len(seg.Fragments) > 0 {
				pts = schedule.ExtractFragments(p.Anchor, seg.Fragments, opts)
			} else {
				pts = schedule.ExtractTokens(p.Anchor, seg.Tokens, opts)
			}
			t.points += len(pts)

			norm := schedule.Normalize(pts, schedule.NormalizeOptions{
				Threshold: t.threshold,
				OnGlitch: func(tp schedule.TimePoint, gap time.Duration) {
					t.metrics.IncGlitchKept()
					t.logger.Debug().
						Str(xglog.FieldEvent, "timeline.glitch_kept").
						Str(xglog.FieldDay, day).
						Str(xglog.FieldTitle, tp.Title).
						Str("clock", tp.Clock.String()).
						Dur("gap", gap).
						Msg("backward time kept on its day")
				},
			})

			channel := seg.Channel
			if channel == "" {
				channel = req.Channel
			}
			if channel != "" {
				out = append(out, schedule.BuildProgrammes(channel, norm, t.duration)...)
				continue
			}
			out = append(out, schedule.BuildRouted(norm, t.router.Route, t.duration)...)
		}
	}
	return out
}
