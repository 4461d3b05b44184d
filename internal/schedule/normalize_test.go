// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"testing"
	"time"
)

func pts(anchor time.Time, entries ...string) []TimePoint {
	out := make([]TimePoint, 0, len(entries))
	for _, s := range entries {
		c, ok := ParseClock(s)
		if !ok {
			panic("bad clock in test: " + s)
		}
		out = append(out, TimePoint{Anchor: anchor, Clock: c, Title: s})
	}
	return out
}

func instant(day time.Time, addDays, h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+addDays, h, m, 0, 0, day.Location())
}

func assertMonotonic(t *testing.T, got []NormalizedPoint) {
	t.Helper()
	for i := 1; i < len(got); i++ {
		if got[i].Instant.Before(got[i-1].Instant) {
			t.Fatalf("not monotonic at %d: %v before %v", i, got[i].Instant, got[i-1].Instant)
		}
	}
}

func TestNormalize_Empty(t *testing.T) {
	if got := Normalize(nil, NormalizeOptions{Threshold: DefaultRolloverThreshold}); len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
}

func TestNormalize_Single(t *testing.T) {
	got := Normalize(pts(monday(), "23:10"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	if len(got) != 1 {
		t.Fatalf("expected 1 point, got %d", len(got))
	}
	if want := instant(monday(), 0, 23, 10); !got[0].Instant.Equal(want) {
		t.Errorf("instant = %v, want %v", got[0].Instant, want)
	}
}

func TestNormalize_RolloverPastThreshold(t *testing.T) {
	got := Normalize(pts(monday(), "22:00", "01:00"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if want := instant(monday(), 1, 1, 0); !got[1].Instant.Equal(want) {
		t.Errorf("01:00 should roll to next day: got %v, want %v", got[1].Instant, want)
	}
	assertMonotonic(t, got)
}

func TestNormalize_SmallGlitchStaysSameDay(t *testing.T) {
	got := Normalize(pts(monday(), "08:00", "07:55"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	want := map[string]time.Time{
		"08:00": instant(monday(), 0, 8, 0),
		"07:55": instant(monday(), 0, 7, 55),
	}
	for _, p := range got {
		if !p.Instant.Equal(want[p.Title]) {
			t.Errorf("%s: got %v, want %v", p.Title, p.Instant, want[p.Title])
		}
	}
	assertMonotonic(t, got)
}

func TestNormalize_GlitchDoesNotCascade(t *testing.T) {
	var glitches []string
	opts := NormalizeOptions{
		Threshold: DefaultRolloverThreshold,
		OnGlitch: func(p TimePoint, gap time.Duration) {
			glitches = append(glitches, p.Title+"/"+gap.String())
		},
	}
	got := Normalize(pts(monday(), "06:00", "05:55", "07:00"), opts)

	want := []time.Time{
		instant(monday(), 0, 5, 55),
		instant(monday(), 0, 6, 0),
		instant(monday(), 0, 7, 0),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if !got[i].Instant.Equal(want[i]) {
			t.Errorf("point %d (%s): got %v, want %v", i, got[i].Title, got[i].Instant, want[i])
		}
	}
	if len(glitches) != 1 || glitches[0] != "05:55/5m0s" {
		t.Errorf("glitch hook calls = %v", glitches)
	}
}

// A glitch must not lower the comparison baseline: 07:30 after the 05:55 glitch is
// compared against 06:00, so it stays on the same day.
func TestNormalize_LastAcceptedOnlyMovesForward(t *testing.T) {
	got := Normalize(pts(monday(), "06:00", "05:55", "05:58", "07:30"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	for _, p := range got {
		if p.Instant.Day() != monday().Day() {
			t.Errorf("%s rolled to %v", p.Title, p.Instant)
		}
	}
	assertMonotonic(t, got)
}

func TestNormalize_EndToEndDay(t *testing.T) {
	got := Normalize(pts(monday(), "05:00", "06:00", "23:30", "00:15"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	want := []time.Time{
		instant(monday(), 0, 5, 0),
		instant(monday(), 0, 6, 0),
		instant(monday(), 0, 23, 30),
		instant(monday(), 1, 0, 15),
	}
	for i := range want {
		if !got[i].Instant.Equal(want[i]) {
			t.Errorf("point %d: got %v, want %v", i, got[i].Instant, want[i])
		}
	}
}

func TestNormalize_WorkingDayAdvancesAfterRollover(t *testing.T) {
	// After rolling to Tuesday, 02:00 is on Tuesday without a second roll.
	got := Normalize(pts(monday(), "23:00", "00:30", "02:00"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	if want := instant(monday(), 1, 2, 0); !got[2].Instant.Equal(want) {
		t.Errorf("got %v, want %v", got[2].Instant, want)
	}
}

func TestNormalize_GlitchAfterRolloverStaysOnWorkingDay(t *testing.T) {
	got := Normalize(pts(monday(), "23:00", "01:00", "00:50"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	want := []time.Time{
		instant(monday(), 0, 23, 0),
		instant(monday(), 1, 0, 50),
		instant(monday(), 1, 1, 0),
	}
	for i := range want {
		if !got[i].Instant.Equal(want[i]) {
			t.Errorf("point %d: got %v, want %v", i, got[i].Instant, want[i])
		}
	}
}

func TestNormalize_LegacyAnyBackwardJumpRolls(t *testing.T) {
	got := Normalize(pts(monday(), "08:00", "07:55"), NormalizeOptions{Threshold: 0})
	if want := instant(monday(), 1, 7, 55); !got[1].Instant.Equal(want) {
		t.Errorf("legacy policy: got %v, want %v", got[1].Instant, want)
	}
}

func TestNormalize_ExactThresholdIsGlitch(t *testing.T) {
	got := Normalize(pts(monday(), "16:00", "08:00"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	if want := instant(monday(), 0, 8, 0); !got[0].Instant.Equal(want) {
		t.Errorf("8h gap must not roll: got %v", got[0].Instant)
	}
}

func TestNormalize_RangeEndCrossesMidnight(t *testing.T) {
	end := Clock{0, 30}
	in := []TimePoint{{Anchor: monday(), Clock: Clock{23, 0}, End: &end, Title: "Cine"}}
	got := Normalize(in, NormalizeOptions{Threshold: DefaultRolloverThreshold})
	if want := instant(monday(), 1, 0, 30); !got[0].End.Equal(want) {
		t.Errorf("end = %v, want %v", got[0].End, want)
	}
}

func TestNormalize_PanelsAreIndependent(t *testing.T) {
	tuesday := monday().AddDate(0, 0, 1)
	a := Normalize(pts(monday(), "22:00", "01:00"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	b := Normalize(pts(tuesday, "05:00"), NormalizeOptions{Threshold: DefaultRolloverThreshold})
	if want := instant(tuesday, 0, 5, 0); !b[0].Instant.Equal(want) {
		t.Errorf("second panel leaked state: got %v, want %v", b[0].Instant, want)
	}
	if len(a) != 2 {
		t.Fatalf("unexpected first panel: %v", a)
	}
}
