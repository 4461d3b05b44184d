// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import "time"

// BuildProgrammes closes a channel's ordered point sequence into intervals.
// Each stop is the next point's start; the last point ends at its explicit range
// end if it has one, else after defaultDuration. A stop that is not after its
// start (duplicate instants) is forced to start+defaultDuration.
func BuildProgrammes(channelID string, pts []NormalizedPoint, defaultDuration time.Duration) []Programme {
	if len(pts) == 0 {
		return nil
	}
	if defaultDuration <= 0 {
		defaultDuration = DefaultDuration
	}

	out := make([]Programme, 0, len(pts))
	for i, p := range pts {
		start := p.Instant
		var stop time.Time
		switch {
		case i+1 < len(pts):
			stop = pts[i+1].Instant
		case !p.End.IsZero():
			stop = p.End
		default:
			stop = start.Add(defaultDuration)
		}
		if !stop.After(start) {
			stop = start.Add(defaultDuration)
		}
		out = append(out, Programme{ChannelID: channelID, Start: start, Stop: stop, Title: p.Title})
	}
	return out
}

// RouteFunc maps a title to the channels it is published on.
type RouteFunc func(title string) []string

// BuildRouted routes every point, groups the points per channel keeping their order,
// and builds each channel sequence independently. Channels appear in order of first use.
func BuildRouted(pts []NormalizedPoint, route RouteFunc, defaultDuration time.Duration) []Programme {
	var order []string
	groups := make(map[string][]NormalizedPoint)
	for _, p := range pts {
		for _, ch := range route(p.Title) {
			if _, ok := groups[ch]; !ok {
				order = append(order, ch)
			}
			groups[ch] = append(groups[ch], p)
		}
	}

	var out []Programme
	for _, ch := range order {
		out = append(out, BuildProgrammes(ch, groups[ch], defaultDuration)...)
	}
	return out
}
