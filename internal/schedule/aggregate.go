// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"sort"
	"strings"
)

// less orders programmes by (channel, start, stop, lowercase title).
func less(a, b Programme) bool {
	if a.ChannelID != b.ChannelID {
		return a.ChannelID < b.ChannelID
	}
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if !a.Stop.Equal(b.Stop) {
		return a.Stop.Before(b.Stop)
	}
	return strings.ToLower(a.Title) < strings.ToLower(b.Title)
}

func sameKey(a, b Programme) bool {
	return a.ChannelID == b.ChannelID &&
		a.Start.Equal(b.Start) &&
		a.Stop.Equal(b.Stop) &&
		strings.EqualFold(a.Title, b.Title)
}

// Aggregate sorts programmes canonically and drops entries whose full key equals
// the preceding entry's. The input slice is not modified. Aggregate(Aggregate(x))
// equals Aggregate(x).
func Aggregate(progs []Programme) []Programme {
	if len(progs) == 0 {
		return nil
	}
	sorted := make([]Programme, len(progs))
	copy(sorted, progs)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	out := sorted[:1]
	for _, p := range sorted[1:] {
		if sameKey(out[len(out)-1], p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CountByChannel returns the number of programmes per channel id.
func CountByChannel(progs []Programme) map[string]int {
	counts := make(map[string]int)
	for _, p := range progs {
		counts[p.ChannelID]++
	}
	return counts
}
