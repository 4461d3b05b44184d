// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the published guide and a small JSON control surface.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/tvsched/internal/api/middleware"
	"github.com/ManuGH/tvsched/internal/audit"
	"github.com/ManuGH/tvsched/internal/config"
	"github.com/ManuGH/tvsched/internal/health"
	"github.com/ManuGH/tvsched/internal/history"
	"github.com/ManuGH/tvsched/internal/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRefreshTimeout = 5 * time.Minute

// Refresher runs and reports refreshes. *jobs.Runner implements it.
type Refresher interface {
	Run(ctx context.Context) (*jobs.Result, error)
	Snapshot() jobs.Snapshot
}

// RunLister lists recorded runs. *history.Store implements it.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Options wires a Server.
type Options struct {
	Version string
	// Config returns the current configuration; it is read per request.
	Config    func() config.AppConfig
	Refresher Refresher
	// History is optional; without it /api/v1/history answers 404.
	History RunLister
	// Health backs /healthz and /readyz. When nil, readiness only checks
	// that a guide has been published.
	Health         *health.Manager
	RefreshTimeout time.Duration
	// Audit records manual refreshes; defaults to the global audit log.
	Audit *audit.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	opts Options
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewLogger()
	}
	if opts.Health == nil {
		opts.Health = health.NewManager(opts.Version)
		opts.Health.RegisterChecker(health.NewFileChecker("guide", func() string {
			return opts.Config().GuidePath()
		}))
	}
	return &Server{opts: opts}
}

// Handler builds the router. The refresh rate limit is taken from the
// configuration at build time.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		SecurityHeaders: true,
		Metrics:         true,
		TracingService:  "tvsched/api",
		AccessLog:       true,
	})

	r.Get("/healthz", s.opts.Health.ServeHealth)
	r.Get("/readyz", s.opts.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/xmltv.xml", s.handleXMLTV)
	r.Head("/xmltv.xml", s.handleXMLTV)

	limit := s.opts.Config().API.RefreshRateLimit
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/history", s.handleHistory)
		r.Get("/programmes", s.handleProgrammes)
		r.With(middleware.RefreshRateLimit(limit)).Post("/refresh", s.handleRefresh)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) { writeNotFound(w, "") })
	return r
}
