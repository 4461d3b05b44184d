// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Mode selects how time tokens are decoded.
type Mode int

const (
	// ModeSingle accepts "H:MM" / "HH:MM" only.
	ModeSingle Mode = iota
	// ModeRange accepts "HH:MM - HH:MM" slots (and single times as open-ended slots).
	ModeRange
)

func (m Mode) String() string {
	if m == ModeRange {
		return "range"
	}
	return "single"
}

// ParseMode decodes "single" or "range"; empty means single.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return ModeSingle, nil
	case "range":
		return ModeRange, nil
	}
	return ModeSingle, fmt.Errorf("unknown time mode %q", s)
}

var (
	clockRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	rangeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(?:-|–|—|a|to)\s*(\d{1,2}):(\d{2})$`)
)

// ParseClock decodes "H:MM" or "HH:MM". Anything else, including AM/PM markers,
// extra tokens and out-of-range values, reports false.
func ParseClock(s string) (Clock, bool) {
	m := clockRe.FindStringSubmatch(collapseSpace(s))
	if m == nil {
		return Clock{}, false
	}
	return clockFrom(m[1], m[2])
}

// ParseRange decodes "HH:MM - HH:MM" (hyphen, en/em dash, "a" or "to" separators).
func ParseRange(s string) (Range, bool) {
	m := rangeRe.FindStringSubmatch(collapseSpace(s))
	if m == nil {
		return Range{}, false
	}
	start, ok := clockFrom(m[1], m[2])
	if !ok {
		return Range{}, false
	}
	end, ok := clockFrom(m[3], m[4])
	if !ok {
		return Range{}, false
	}
	return Range{Start: start, End: end}, true
}

// ParseToken decodes s according to mode. In range mode a bare time is accepted
// with a nil end; in single mode ranges are rejected.
func ParseToken(s string, mode Mode) (start Clock, end *Clock, ok bool) {
	if mode == ModeRange {
		if r, ok := ParseRange(s); ok {
			e := r.End
			return r.Start, &e, true
		}
	}
	c, ok := ParseClock(s)
	return c, nil, ok
}

func clockFrom(hh, mm string) (Clock, bool) {
	h, err := strconv.Atoi(hh)
	if err != nil {
		return Clock{}, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return Clock{}, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: m}, true
}
