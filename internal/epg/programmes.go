// SPDX-License-Identifier: MIT
package epg

import (
	"time"

	"github.com/ManuGH/tvsched/internal/schedule"
)

// ChannelsFromSchedule converts configured channels, one display name each.
func ChannelsFromSchedule(channels []schedule.Channel) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		out = append(out, Channel{ID: ch.ID, DisplayName: []string{ch.DisplayName}})
	}
	return out
}

// ProgrammesFromSchedule converts aggregated programmes to XMLTV programmes.
// Timestamps are rendered in loc, the guide's fixed offset.
func ProgrammesFromSchedule(progs []schedule.Programme, loc *time.Location) []Programme {
	out := make([]Programme, 0, len(progs))
	for _, p := range progs {
		out = append(out, Programme{
			Start:   FormatTime(p.Start.In(loc)),
			Stop:    FormatTime(p.Stop.In(loc)),
			Channel: p.ChannelID,
			Title:   Title{Text: p.Title},
		})
	}
	return out
}

// BuildGuide assembles the guide document for channels and programmes.
func BuildGuide(channels []schedule.Channel, progs []schedule.Programme, loc *time.Location) TV {
	return GenerateXMLTV(ChannelsFromSchedule(channels), ProgrammesFromSchedule(progs, loc))
}
