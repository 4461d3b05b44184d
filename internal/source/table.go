// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package source

import (
	"strings"

	"github.com/ManuGH/tvsched/internal/schedule"
	"github.com/PuerkitoBio/goquery"
)

// Table reads one <table> per day: the first cell of a row holds the time
// (single or range), the second the title. The day comes from the caption or
// the nearest preceding heading.
type Table struct{}

func (Table) Name() string { return "table" }

func (Table) Panels(doc *goquery.Document, _ Request) ([]Panel, error) {
	var panels []Panel
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		var frags []schedule.Fragment
		timed := 0
		tbl.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered("td, th")
			if cells.Length() < 2 {
				return
			}
			tm := cells.Eq(0).Text()
			if _, _, ok := schedule.ParseToken(tm, schedule.ModeRange); ok {
				timed++
			}
			frags = append(frags, schedule.Fragment{Time: tm, Title: cells.Eq(1).Text()})
		})
		if timed == 0 {
			return
		}

		label := strings.TrimSpace(tbl.Find("caption").First().Text())
		if label == "" {
			label = strings.TrimSpace(tbl.PrevAllFiltered("h1, h2, h3, h4, h5, h6").First().Text())
		}
		panels = append(panels, Panel{
			Label:    label,
			Weekday:  leadingWeekday(label),
			Active:   tbl.HasClass("active") || tbl.Parent().HasClass("active"),
			Mode:     schedule.ModeRange,
			Segments: []Segment{{Fragments: frags}},
		})
	})
	return panels, nil
}
