// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"strings"

	"github.com/ManuGH/tvsched/internal/schedule"
	"github.com/PuerkitoBio/goquery"
)

// Selectors locate the parts of the tabbed layout.
type Selectors struct {
	Tabs     string // day tab items; the selected one carries class "active"
	Sections string // wrapper holding one element per day
	Day      string // day element inside Sections
	Card     string // one programme card inside a day
	Time     string // time element inside a card
	Title    string // title element inside a card
}

// DefaultSelectors match the broadcaster's current markup.
var DefaultSelectors = Selectors{
	Tabs:     "li.c-list-tv__tabs-item",
	Sections: ".c-list-tv__tabs__sections",
	Day:      "article",
	Card:     "div.c-list-tv-simple__txt",
	Time:     "span",
	Title:    "p",
}

// Merge fills empty fields of s from def.
func (s Selectors) Merge(def Selectors) Selectors {
	pick := func(a, b string) string {
		if strings.TrimSpace(a) == "" {
			return b
		}
		return a
	}
	return Selectors{
		Tabs:     pick(s.Tabs, def.Tabs),
		Sections: pick(s.Sections, def.Sections),
		Day:      pick(s.Day, def.Day),
		Card:     pick(s.Card, def.Card),
		Time:     pick(s.Time, def.Time),
		Title:    pick(s.Title, def.Title),
	}
}

// Tabs reads the tabbed weekly layout: day sections in Monday..Sunday order,
// each holding cards with a time element and a title element.
type Tabs struct {
	Sel Selectors
}

func (Tabs) Name() string { return "tabs" }

func (t Tabs) Panels(doc *goquery.Document, _ Request) ([]Panel, error) {
	sel := t.Sel.Merge(DefaultSelectors)

	wrap := doc.Find(sel.Sections).First()
	if wrap.Length() == 0 {
		return nil, nil
	}

	var days []*goquery.Selection
	wrap.Find(sel.Day).Each(func(_ int, s *goquery.Selection) {
		if s.Find(sel.Card).Length() > 0 {
			days = append(days, s)
		}
	})
	if len(days) == 0 {
		return nil, nil
	}

	labels := doc.Find(sel.Tabs).Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})

	active := -1
	doc.Find(sel.Tabs).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("active") {
			active = WeekdayIndex(s.Text())
			return active < 0
		}
		return true
	})

	panels := make([]Panel, 0, len(days))
	for i, day := range days {
		var frags []schedule.Fragment
		day.Find(sel.Card).Each(func(_ int, card *goquery.Selection) {
			tm := card.Find(sel.Time).First()
			title := card.Find(sel.Title).First()
			if tm.Length() == 0 || title.Length() == 0 {
				return
			}
			frags = append(frags, schedule.Fragment{Time: tm.Text(), Title: title.Text()})
		})

		p := Panel{
			Weekday:  i % 7,
			Mode:     schedule.ModeSingle,
			Segments: []Segment{{Fragments: frags}},
		}
		if len(labels) == len(days) {
			p.Label = labels[i]
		}
		p.Active = active >= 0 && p.Weekday == active
		panels = append(panels, p)
	}
	return panels, nil
}
