// SPDX-License-Identifier: MIT

// Package report renders a guide as a plain-text timetable for terminals.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ManuGH/tvsched/internal/schedule"
	"github.com/mattn/go-runewidth"
)

// DefaultTitleWidth is the display width titles are truncated to.
const DefaultTitleWidth = 48

// Options controls Timetable.
type Options struct {
	// Location renders times in this zone; nil keeps each programme's zone.
	Location *time.Location
	// TitleWidth truncates titles; zero means DefaultTitleWidth.
	TitleWidth int
	// Channel limits output to one channel id.
	Channel string
}

// Timetable writes one table per channel, in channel order, with a row per
// programme. Programmes are expected sorted by start as the aggregator emits
// them. Channels without programmes are listed with an empty marker.
func Timetable(w io.Writer, channels []schedule.Channel, progs []schedule.Programme, opts Options) error {
	if opts.TitleWidth <= 0 {
		opts.TitleWidth = DefaultTitleWidth
	}
	byChannel := make(map[string][]schedule.Programme, len(channels))
	for _, p := range progs {
		byChannel[p.ChannelID] = append(byChannel[p.ChannelID], p)
	}

	var sb strings.Builder
	first := true
	for _, ch := range channels {
		if opts.Channel != "" && ch.ID != opts.Channel {
			continue
		}
		if !first {
			sb.WriteString("\n")
		}
		first = false

		name := ch.DisplayName
		if name == "" {
			name = ch.ID
		}
		fmt.Fprintf(&sb, "%s (%s)\n", name, ch.ID)

		list := byChannel[ch.ID]
		if len(list) == 0 {
			sb.WriteString("  (no programmes)\n")
			continue
		}

		rows := make([][]string, 0, len(list))
		for _, p := range list {
			start, stop := p.Start, p.Stop
			if opts.Location != nil {
				start, stop = start.In(opts.Location), stop.In(opts.Location)
			}
			rows = append(rows, []string{
				start.Format("Mon 2006-01-02"),
				start.Format("15:04"),
				stop.Format("15:04"),
				runewidth.Truncate(p.Title, opts.TitleWidth, "…"),
			})
		}
		writeTable(&sb, []string{"Day", "Start", "Stop", "Title"}, rows)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// writeTable pads cells to their display width so wide and combining
// characters line up.
func writeTable(sb *strings.Builder, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	line := func(cells []string) {
		sb.WriteString(" ")
		for i, cell := range cells {
			sb.WriteString(" ")
			if i == len(cells)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}

	line(header)
	sep := make([]string, len(header))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}
