// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package schedule turns scraped "time, title" pairs into an absolute,
// time-ordered programme timeline.
//
// The pipeline is Extract -> Normalize -> (route) -> BuildProgrammes -> Aggregate.
// Every stage is a pure function over values; nothing here performs I/O.
package schedule

import (
	"fmt"
	"time"
)

const (
	// DefaultRolloverThreshold separates a midnight crossing from a source ordering glitch.
	DefaultRolloverThreshold = 8 * time.Hour
	// DefaultDuration is applied to the last programme of a sequence.
	DefaultDuration = 30 * time.Minute
	// DefaultUTCOffset is the guide's fixed offset (Ecuador, no DST).
	DefaultUTCOffset = -5 * time.Hour
)

// Fragment is one structured schedule card as delivered by a source strategy.
type Fragment struct {
	Time  string
	Title string
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// Duration returns the offset of c from midnight.
func (c Clock) Duration() time.Duration {
	return time.Duration(c.Hour)*time.Hour + time.Duration(c.Minute)*time.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Range is a "HH:MM - HH:MM" slot.
type Range struct {
	Start Clock
	End   Clock
}

// TimePoint is one extracted entry of a day-panel.
type TimePoint struct {
	// Anchor is midnight of the day-panel in the guide zone.
	Anchor time.Time
	Clock  Clock
	// End is only set by range-mode extraction.
	End   *Clock
	Title string
}

// NormalizedPoint is a TimePoint resolved to an absolute instant.
type NormalizedPoint struct {
	Instant time.Time
	Title   string
	// End is the explicit end instant from range-mode sources (zero otherwise).
	End time.Time
}

// Programme is a closed [Start, Stop) interval on one channel. Stop is always after Start.
type Programme struct {
	ChannelID string
	Start     time.Time
	Stop      time.Time
	Title     string
}

// Channel is a configured output channel.
type Channel struct {
	ID          string
	DisplayName string
}

// Zone returns the fixed guide zone for the given UTC offset.
func Zone(offset time.Duration) *time.Location {
	secs := int(offset / time.Second)
	sign := "+"
	if secs < 0 {
		sign = "-"
		secs = -secs
	}
	name := fmt.Sprintf("UTC%s%02d:%02d", sign, secs/3600, (secs%3600)/60)
	return time.FixedZone(name, int(offset/time.Second))
}

// Midnight returns 00:00 of t's calendar date in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
