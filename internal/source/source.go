// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package source turns a fetched schedule page into day panels of raw
// fragments. Page layouts are handled by strategies tried in a fixed order.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/schedule"
	"github.com/PuerkitoBio/goquery"
)

// ErrScheduleMissing means no strategy found a usable schedule region, or
// the region holds fewer day panels than required. It is fatal for the source.
var ErrScheduleMissing = errors.New("schedule region not found")

// Request describes one page fetch and how its panels are anchored.
type Request struct {
	URL string
	// Date is the day a per-date page covers; zero for multi-day pages.
	Date time.Time
	City string
	// Channel forces every point of this page onto one channel.
	Channel string
	// Today is midnight of the current day in the guide zone.
	Today time.Time
	// Days is the number of day panels a multi-day page must provide.
	Days int
}

// Segment is a run of raw input published on Channel, or routed per title
// when Channel is empty.
type Segment struct {
	Channel   string
	Fragments []schedule.Fragment
	Tokens    []string
}

// Panel is one day of the schedule.
type Panel struct {
	Label string
	// Weekday is Monday=0 .. Sunday=6, or -1 when unknown.
	Weekday int
	// Active marks the panel of the tab the page shows as selected.
	Active   bool
	Mode     schedule.Mode
	Segments []Segment
	// Anchor is midnight of the panel's date; set by AnchorPanels.
	Anchor time.Time
}

// Strategy recognises one page layout. Panels returns no panels and no error
// when its layout is absent from doc.
type Strategy interface {
	Name() string
	Panels(doc *goquery.Document, req Request) ([]Panel, error)
}

// Error is a strategy failure.
type Error struct {
	Strategy string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("strategy=%s: %v", e.Strategy, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Attempt records one strategy try, for explaining fallbacks.
type Attempt struct {
	Strategy string
	Panels   int
	Err      error
}

// Outcome is "ok", "empty" or "error".
func (a Attempt) Outcome() string {
	switch {
	case a.Err != nil:
		return "error"
	case a.Panels == 0:
		return "empty"
	default:
		return "ok"
	}
}

// Located is the result of reading one page.
type Located struct {
	Strategy string
	Panels   []Panel
	Attempts []Attempt
}

// Registry indexes strategies by name.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry builds a registry. Names are case-insensitive and must be unique.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	byName := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		if s == nil {
			return nil, fmt.Errorf("source: nil strategy")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return nil, fmt.Errorf("source: strategy name is empty")
		}
		if _, ok := byName[name]; ok {
			return nil, fmt.Errorf("source: duplicate strategy %q", name)
		}
		byName[name] = s
	}
	return &Registry{byName: byName}, nil
}

// Get returns the strategy called name.
func (r *Registry) Get(name string) (Strategy, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Parse builds a document from a UTF-8 page body.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Locate tries the strategies in order and returns the first that yields
// panels. Every try is recorded in Attempts.
func Locate(reg *Registry, order []string, doc *goquery.Document, req Request) (Located, error) {
	var out Located
	for _, name := range order {
		s, ok := reg.Get(name)
		if !ok {
			out.Attempts = append(out.Attempts, Attempt{Strategy: name, Err: fmt.Errorf("strategy %q not registered", name)})
			continue
		}
		panels, err := s.Panels(doc, req)
		if err != nil {
			out.Attempts = append(out.Attempts, Attempt{Strategy: name, Err: &Error{Strategy: name, Err: err}})
			continue
		}
		out.Attempts = append(out.Attempts, Attempt{Strategy: name, Panels: len(panels)})
		if len(panels) > 0 {
			out.Strategy = name
			out.Panels = panels
			return out, nil
		}
	}
	return out, fmt.Errorf("%w (tried %s)", ErrScheduleMissing, strings.Join(order, ", "))
}

// AnchorPanels assigns each panel its date.
//
// A per-date page (req.Date set) contributes a single panel anchored at that
// date: the one whose weekday matches, else the first. A multi-day page must
// provide at least req.Days panels; the first req.Days are kept and anchored
// relative to the active panel's weekday, or today's when no panel is active.
// Panels without a weekday take their position as weekday (Monday first).
func AnchorPanels(panels []Panel, req Request) ([]Panel, error) {
	if len(panels) == 0 {
		return nil, ErrScheduleMissing
	}

	if !req.Date.IsZero() {
		pick := panels[0]
		want := MondayIndex(req.Date)
		for _, p := range panels {
			if p.Weekday == want {
				pick = p
				break
			}
		}
		pick.Anchor = req.Date
		return []Panel{pick}, nil
	}

	if len(panels) < req.Days {
		return nil, fmt.Errorf("%w: expected %d day panels, found %d", ErrScheduleMissing, req.Days, len(panels))
	}
	if req.Days > 0 {
		panels = panels[:req.Days]
	}

	active := MondayIndex(req.Today)
	for i, p := range panels {
		if p.Active {
			active = weekdayOrIndex(p, i)
			break
		}
	}

	out := make([]Panel, len(panels))
	for i, p := range panels {
		p.Anchor = req.Today.AddDate(0, 0, weekdayOrIndex(p, i)-active)
		out[i] = p
	}
	return out, nil
}

func weekdayOrIndex(p Panel, i int) int {
	if p.Weekday >= 0 {
		return p.Weekday
	}
	return i % 7
}

// ReadPage parses body, locates its schedule and anchors the panels.
func ReadPage(reg *Registry, order []string, body []byte, req Request) (Located, error) {
	doc, err := Parse(body)
	if err != nil {
		return Located{}, err
	}
	loc, err := Locate(reg, order, doc, req)
	if err != nil {
		return loc, err
	}
	panels, err := AnchorPanels(loc.Panels, req)
	if err != nil {
		return loc, err
	}
	loc.Panels = panels
	return loc, nil
}

// DefaultRegistry registers the built-in strategies: tabs with sel, table,
// and text with the given token mode and city markers.
func DefaultRegistry(sel Selectors, textMode schedule.Mode, markers map[string]string) *Registry {
	reg, err := NewRegistry(Tabs{Sel: sel}, Table{}, Text{Mode: textMode, Markers: markers})
	if err != nil {
		// Built-in names are unique and non-empty.
		panic(err)
	}
	return reg
}
