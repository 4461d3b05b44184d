// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP middleware shared by every route.
package middleware

import (
	"github.com/go-chi/chi/v5"
)

// StackConfig selects the optional layers of the middleware stack.
type StackConfig struct {
	SecurityHeaders bool
	Metrics         bool
	// TracingService names the tracer; empty disables tracing.
	TracingService string
	AccessLog      bool
}

// NewRouter returns a chi router with the stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack installs the middleware on r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	if cfg.SecurityHeaders {
		r.Use(SecurityHeaders)
	}
	if cfg.Metrics {
		r.Use(Metrics())
	}
	if cfg.TracingService != "" {
		r.Use(Tracing(cfg.TracingService))
	}
	if cfg.AccessLog {
		r.Use(AccessLog)
	}
}
