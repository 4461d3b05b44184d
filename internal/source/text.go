// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/routing"
	"github.com/ManuGH/tvsched/internal/schedule"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Text is the last resort: the page's visible text is flattened into lines,
// day headings start panels, and each panel is a token stream. With Markers
// set, city header lines split a day into per-channel segments.
type Text struct {
	Mode    schedule.Mode
	Markers map[string]string
}

func (Text) Name() string { return "text" }

func (t Text) Panels(doc *goquery.Document, _ Request) ([]Panel, error) {
	lines := VisibleLines(doc)
	if len(lines) == 0 {
		return nil, nil
	}

	var panels []Panel
	var cur *Panel
	var tokens []string
	flush := func() {
		if cur != nil {
			cur.Segments = t.segments(tokens)
			panels = append(panels, *cur)
		}
		tokens = nil
	}

	for _, line := range lines {
		if day := leadingWeekday(line); day >= 0 {
			flush()
			cur = &Panel{Label: line, Weekday: day, Mode: t.Mode}
			continue
		}
		tokens = append(tokens, line)
	}
	if cur == nil {
		// No day headings: the whole page is one undated panel.
		cur = &Panel{Weekday: -1, Mode: t.Mode}
	}
	flush()

	out := panels[:0]
	for _, p := range panels {
		if hasTime(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t Text) segments(tokens []string) []Segment {
	if len(t.Markers) == 0 {
		return []Segment{{Tokens: tokens}}
	}
	split := routing.SplitByMarker(tokens, t.Markers)
	out := make([]Segment, 0, len(split))
	for _, s := range split {
		out = append(out, Segment{Channel: s.Channel, Tokens: s.Tokens})
	}
	return out
}

func hasTime(p Panel) bool {
	for _, s := range p.Segments {
		if len(schedule.ExtractTokens(time.Time{}, s.Tokens, schedule.ExtractOptions{Mode: p.Mode})) > 0 {
			return true
		}
	}
	return false
}

// skipElements hold no visible text.
var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "head": true,
}

// VisibleLines returns the document's text nodes as trimmed, non-empty lines
// in document order.
func VisibleLines(doc *goquery.Document) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			for _, l := range strings.Split(n.Data, "\n") {
				if l = strings.Join(strings.Fields(l), " "); l != "" {
					lines = append(lines, l)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return lines
}
