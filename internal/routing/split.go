// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package routing

import (
	"strings"

	"github.com/ManuGH/tvsched/internal/schedule"
)

// Segment is a run of tokens attributed to one channel by SplitByMarker.
// Channel is empty for tokens seen before the first marker.
type Segment struct {
	Channel string
	Tokens  []string
}

// SplitByMarker is the degraded routing fallback for pages that list each city's
// schedule under a header instead of tagging titles. A token whose folded text
// equals a marker label starts a new segment for that label's channel; the header
// token itself is dropped. markers maps header label to channel id.
//
// It works on whole sections and is unrelated to Router.Route, which classifies
// individual titles.
func SplitByMarker(tokens []string, markers map[string]string) []Segment {
	folded := make(map[string]string, len(markers))
	for label, ch := range markers {
		folded[schedule.Fold(strings.TrimSpace(label))] = ch
	}

	var out []Segment
	cur := Segment{}
	for _, tok := range tokens {
		if ch, ok := folded[schedule.Fold(strings.TrimSpace(tok))]; ok {
			if len(cur.Tokens) > 0 {
				out = append(out, cur)
			}
			cur = Segment{Channel: ch}
			continue
		}
		cur.Tokens = append(cur.Tokens, tok)
	}
	if len(cur.Tokens) > 0 {
		out = append(out, cur)
	}
	return out
}
