// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"sort"
	"time"
)

// NormalizeOptions controls day-rollover resolution.
type NormalizeOptions struct {
	// Threshold is the backward gap above which a point is treated as being past
	// midnight. Zero rolls on any backward jump (the older policy).
	Threshold time.Duration
	// OnGlitch, if set, is called for every point kept on its working day despite
	// running backwards by at most Threshold.
	OnGlitch func(p TimePoint, gap time.Duration)
}

// rollover is the fold state threaded through one day-panel.
// last only ever moves forward.
type rollover struct {
	day       time.Time
	last      time.Time
	threshold time.Duration
}

func at(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// step resolves one point. glitch reports a backward jump within threshold; the
// returned instant is then the naive one and last is unchanged.
func (r rollover) step(c Clock) (next rollover, instant time.Time, gap time.Duration, glitch bool) {
	naive := at(r.day, c)
	if !naive.Before(r.last) {
		r.last = naive
		return r, naive, 0, false
	}

	gap = r.last.Sub(naive)
	if gap <= r.threshold {
		return r, naive, gap, true
	}

	for naive.Before(r.last) {
		naive = naive.AddDate(0, 0, 1)
	}
	r.day = time.Date(naive.Year(), naive.Month(), naive.Day(), 0, 0, 0, 0, naive.Location())
	r.last = naive
	return r, naive, gap, false
}

// Normalize anchors the points of one day-panel to absolute instants. The first
// point sits on its Anchor date; later points are resolved by the rollover fold.
// The result is ordered by instant (stable), so it is non-decreasing even when
// small glitches were kept in place.
func Normalize(points []TimePoint, opts NormalizeOptions) []NormalizedPoint {
	if len(points) == 0 {
		return nil
	}

	threshold := opts.Threshold
	if threshold < 0 {
		threshold = 0
	}

	first := points[0]
	day := time.Date(first.Anchor.Year(), first.Anchor.Month(), first.Anchor.Day(), 0, 0, 0, 0, first.Anchor.Location())
	start := at(day, first.Clock)
	state := rollover{day: day, last: start, threshold: threshold}

	out := make([]NormalizedPoint, 0, len(points))
	out = append(out, normalized(first, start))

	for _, p := range points[1:] {
		var (
			instant time.Time
			gap     time.Duration
			glitch  bool
		)
		state, instant, gap, glitch = state.step(p.Clock)
		if glitch && opts.OnGlitch != nil {
			opts.OnGlitch(p, gap)
		}
		out = append(out, normalized(p, instant))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Instant.Before(out[j].Instant)
	})
	return out
}

func normalized(p TimePoint, instant time.Time) NormalizedPoint {
	np := NormalizedPoint{Instant: instant, Title: p.Title}
	if p.End != nil {
		end := at(instant, *p.End)
		if end.Before(instant) {
			end = end.AddDate(0, 0, 1)
		}
		if end.After(instant) {
			np.End = end
		}
	}
	return np
}
