// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package schedule

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	unorm "golang.org/x/text/unicode/norm"
)

// DefaultDenylist holds labels that show up in schedule markup but are never programmes.
var DefaultDenylist = []string{
	"lunes", "martes", "miércoles", "jueves", "viernes", "sábado", "domingo",
	"hoy", "mañana",
	"quito", "guayaquil",
	"programación", "programacion", "schedule", "channels", "canales", "en vivo",
}

// ExtractOptions controls the Point Extractor.
type ExtractOptions struct {
	Mode Mode
	// Denylist entries are compared after case and accent folding.
	Denylist []string
	// SortByClock stable-sorts the panel by time of day. Leave it off for panels
	// that may cross midnight; Normalize orders by absolute instant anyway.
	SortByClock bool
}

var (
	space      = regexp.MustCompile(`\s+`)
	ampmPrefix = regexp.MustCompile(`(?i)^(?:(?:am|pm)\s+){1,2}`)
	// "06:00 Noticias" or "06:00 - 07:00 Noticias" in one flattened token.
	leadingTime = regexp.MustCompile(`^(\d{1,2}:\d{2}(?:\s*(?:-|–|—|a|to)\s*\d{1,2}:\d{2})?)\s+(\S.*)$`)
)

func collapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(space.ReplaceAllString(s, " "))
}

// CleanTitle applies the trivial title cleanup: NBSP and whitespace collapse, NFC,
// stray AM/PM prefixes and a doubled leading token ("Noticias Noticias 24H").
func CleanTitle(s string) string {
	s = unorm.NFC.String(collapseSpace(s))
	s = strings.TrimSpace(ampmPrefix.ReplaceAllString(s, ""))
	for {
		fields := strings.SplitN(s, " ", 3)
		if len(fields) < 2 || !strings.EqualFold(fields[0], fields[1]) {
			break
		}
		s = strings.Join(fields[1:], " ")
	}
	return s
}

// Fold lowercases s and strips diacritics, for keyword comparisons.
func Fold(s string) string {
	t := transform.Chain(unorm.NFD, runes.Remove(runes.In(unicode.Mn)), unorm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

type denyset map[string]struct{}

func newDenyset(words []string) denyset {
	d := make(denyset, len(words))
	for _, w := range words {
		if k := Fold(collapseSpace(w)); k != "" {
			d[k] = struct{}{}
		}
	}
	return d
}

func (d denyset) has(title string) bool {
	_, ok := d[Fold(title)]
	return ok
}

// ExtractFragments turns the structured cards of one day-panel into TimePoints.
// Cards whose time does not parse or whose title is empty or denylisted are dropped.
func ExtractFragments(anchor time.Time, frags []Fragment, opts ExtractOptions) []TimePoint {
	deny := newDenyset(opts.Denylist)
	points := make([]TimePoint, 0, len(frags))
	for _, f := range frags {
		start, end, ok := ParseToken(f.Time, opts.Mode)
		if !ok {
			continue
		}
		title := CleanTitle(f.Title)
		if title == "" || deny.has(title) {
			continue
		}
		points = append(points, TimePoint{Anchor: anchor, Clock: start, End: end, Title: title})
	}
	return finish(points, opts)
}

// ExtractTokens scans a flattened token stream of one day-panel. Each time token is
// paired with the first following non-blank, non-time token; a time immediately
// followed by another time has no title and is dropped.
func ExtractTokens(anchor time.Time, tokens []string, opts ExtractOptions) []TimePoint {
	deny := newDenyset(opts.Denylist)
	toks := splitTokens(tokens)

	var points []TimePoint
	for i := 0; i < len(toks); i++ {
		start, end, ok := ParseToken(toks[i], opts.Mode)
		if !ok {
			continue
		}
		j := i + 1
		for j < len(toks) && toks[j] == "" {
			j++
		}
		if j >= len(toks) || isTimeToken(toks[j]) {
			continue
		}
		i = j
		title := CleanTitle(toks[j])
		if title == "" || deny.has(title) {
			continue
		}
		points = append(points, TimePoint{Anchor: anchor, Clock: start, End: end, Title: title})
	}
	return finish(points, opts)
}

// splitTokens normalises whitespace and splits "HH:MM Title" tokens in two.
func splitTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = collapseSpace(t)
		if isTimeToken(t) {
			out = append(out, t)
			continue
		}
		if m := leadingTime.FindStringSubmatch(t); m != nil {
			out = append(out, m[1], m[2])
			continue
		}
		out = append(out, t)
	}
	return out
}

func isTimeToken(s string) bool {
	if _, ok := ParseClock(s); ok {
		return true
	}
	_, ok := ParseRange(s)
	return ok
}

type pointKey struct {
	clock Clock
	title string
}

// finish drops exact (time, title) repeats keeping first-seen order.
func finish(points []TimePoint, opts ExtractOptions) []TimePoint {
	seen := make(map[pointKey]struct{}, len(points))
	out := points[:0]
	for _, p := range points {
		k := pointKey{clock: p.Clock, title: strings.ToLower(p.Title)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	if opts.SortByClock {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Clock.Duration() < out[j].Clock.Duration()
		})
	}
	return out
}
