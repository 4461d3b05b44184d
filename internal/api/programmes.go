// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/ManuGH/tvsched/internal/epg"
	"github.com/ManuGH/tvsched/internal/log"
)

type programmeResponse struct {
	Channel string    `json:"channel"`
	Start   time.Time `json:"start"`
	Stop    time.Time `json:"stop"`
	Title   string    `json:"title"`
}

// handleProgrammes lists programmes from the published guide, optionally
// filtered by channel id and by a calendar date in the guide's zone.
func (s *Server) handleProgrammes(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	cfg := s.opts.Config()
	q := r.URL.Query()
	channel := q.Get("channel")

	loc, err := cfg.Timeline.Location()
	if err != nil {
		logger.Error().Err(err).Str("event", "programmes.zone_invalid").Msg("invalid guide zone")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	var dayStart, dayEnd time.Time
	if raw := q.Get("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		dayStart, dayEnd = d, d.AddDate(0, 0, 1)
	}

	tv, err := epg.ReadXMLTV(s.guidePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeNotFound(w, "guide not generated yet")
			return
		}
		logger.Error().Err(err).Str("event", "programmes.read_failed").Msg("cannot read guide")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	out := make([]programmeResponse, 0, len(tv.Programs))
	for _, p := range tv.Programs {
		if channel != "" && p.Channel != channel {
			continue
		}
		start, err := epg.ParseTime(p.Start)
		if err != nil {
			continue
		}
		stop, err := epg.ParseTime(p.Stop)
		if err != nil {
			continue
		}
		// a programme belongs to the day it starts on
		if !dayStart.IsZero() && (start.Before(dayStart) || !start.Before(dayEnd)) {
			continue
		}
		out = append(out, programmeResponse{
			Channel: p.Channel,
			Start:   start.In(loc),
			Stop:    stop.In(loc),
			Title:   p.Title.Text,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
