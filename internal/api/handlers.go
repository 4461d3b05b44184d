// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ManuGH/tvsched/internal/audit"
	"github.com/ManuGH/tvsched/internal/jobs"
	"github.com/ManuGH/tvsched/internal/log"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	// maxGuideSize bounds what /xmltv.xml will serve.
	maxGuideSize = 50 * 1024 * 1024
)

type guideInfo struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

type statusResponse struct {
	Version     string       `json:"version"`
	Refreshing  bool         `json:"refreshing"`
	Last        *jobs.Status `json:"last,omitempty"`
	LastSuccess *jobs.Status `json:"last_success,omitempty"`
	Guide       *guideInfo   `json:"guide,omitempty"`
}

func (s *Server) guidePath() string {
	return filepath.Clean(s.opts.Config().GuidePath())
}

func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")
	path := s.guidePath()

	// path comes from configuration, not from request input
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeNotFound(w, "guide not generated yet")
			return
		}
		logger.Error().Err(err).Str("event", "xmltv.open_failed").Str(log.FieldPath, path).Msg("cannot open guide")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		logger.Error().Err(err).Str("event", "xmltv.stat_failed").Str(log.FieldPath, path).Msg("cannot stat guide")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}
	if info.Size() > maxGuideSize {
		logger.Warn().Str("event", "xmltv.too_large").Int64("size", info.Size()).Msg("guide exceeds serving limit")
		writeError(w, http.StatusInternalServerError, "guide_too_large", "")
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	http.ServeContent(w, r, "xmltv.xml", info.ModTime(), f)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.opts.Refresher.Snapshot()
	resp := statusResponse{
		Version:     s.opts.Version,
		Refreshing:  snap.Running,
		Last:        snap.Last,
		LastSuccess: snap.LastSuccess,
	}
	path := s.guidePath()
	if info, err := os.Stat(path); err == nil {
		resp.Guide = &guideInfo{Path: path, Size: info.Size(), Modified: info.ModTime().UTC()}
	}
	writeJSON(w, http.StatusOK, resp)
}

type runResponse struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DurationMS int64          `json:"duration_ms"`
	Outcome    string         `json:"outcome"`
	Stage      string         `json:"stage,omitempty"`
	Strategy   string         `json:"strategy,omitempty"`
	Points     int            `json:"points"`
	Programmes int            `json:"programmes"`
	Channels   map[string]int `json:"channels"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeNotFound(w, "history disabled")
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 200")
			return
		}
		limit = n
	}

	runs, err := s.opts.History.Recent(r.Context(), limit)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("event", "history.query_failed").Msg("cannot list refresh history")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, runResponse{
			ID:         run.ID,
			StartedAt:  run.StartedAt.UTC(),
			FinishedAt: run.FinishedAt.UTC(),
			DurationMS: run.Duration().Milliseconds(),
			Outcome:    run.Outcome,
			Stage:      run.Stage,
			Strategy:   run.Strategy,
			Points:     run.Points,
			Programmes: run.Programmes(),
			Channels:   run.Channels,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRefresh runs a refresh synchronously. The refresh is detached from the
// client connection so a dropped request does not abort a half-written guide.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.opts.RefreshTimeout)
	defer cancel()

	res, err := s.opts.Refresher.Run(ctx)
	if err != nil {
		if errors.Is(err, jobs.ErrBusy) {
			s.opts.Audit.ManualRefresh(r, audit.ResultDenied, nil)
			w.Header().Set("Retry-After", "30")
			writeError(w, http.StatusConflict, "refresh_in_progress", "")
			return
		}
		logger.Error().Err(err).Str("event", "refresh.failed").Str(log.FieldStage, jobs.StageOf(err)).Msg("manual refresh failed")
		s.opts.Audit.ManualRefresh(r, audit.ResultFailure, map[string]string{"stage": jobs.StageOf(err)})
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "refresh_failed",
			"stage": jobs.StageOf(err),
		})
		return
	}

	s.opts.Audit.ManualRefresh(r, audit.ResultSuccess, map[string]string{"job_id": res.Status.JobID})
	logger.Info().Str("event", "refresh.manual").Int(log.FieldProgrammes, res.Status.Programmes).Msg("manual refresh completed")
	writeJSON(w, http.StatusOK, res.Status)
}
