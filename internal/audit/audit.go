// SPDX-License-Identifier: MIT

// Package audit records operator-initiated actions: manual refreshes and
// configuration reloads. It follows the WHO/WHAT/WHEN pattern.
package audit

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ManuGH/tvsched/internal/log"
	"github.com/rs/zerolog"
)

// EventType represents the type of audit event.
type EventType string

const (
	EventConfigReload      EventType = "config.reload"
	EventConfigReloadError EventType = "config.reload.error"

	EventRefreshManual   EventType = "refresh.manual"
	EventRefreshRejected EventType = "refresh.manual.rejected"
)

// Results recorded on events.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultDenied  = "denied"
)

// Event represents a structured audit event.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Actor      string // WHO: client IP or "signal:SIGHUP"
	Action     string // WHAT: human-readable description
	Resource   string
	Result     string
	RemoteAddr string
	UserAgent  string
	RequestID  string
	Details    map[string]string
}

// Logger provides audit logging functionality.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger on the global log with component "audit".
func NewLogger() *Logger {
	return NewLoggerWith(log.WithComponent("audit"))
}

// NewLoggerWith creates an audit logger writing to base.
func NewLoggerWith(base zerolog.Logger) *Logger {
	return &Logger{logger: base.With().Str("log_type", "audit").Logger()}
}

// Log writes an audit event.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e := l.logger.Info().
		Time("timestamp", event.Timestamp).
		Str("event_type", string(event.Type)).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("resource", event.Resource).
		Str("result", event.Result)

	if event.RemoteAddr != "" {
		e.Str("remote_addr", event.RemoteAddr)
	}
	if event.UserAgent != "" {
		e.Str("user_agent", event.UserAgent)
	}
	if event.RequestID != "" {
		e.Str(log.FieldRequestID, event.RequestID)
	}
	for key, value := range event.Details {
		e.Str(key, value)
	}
	e.Msg("audit event")
}

// LogRequest fills the actor and request metadata from r before logging.
func (l *Logger) LogRequest(r *http.Request, event Event) {
	event.RemoteAddr = clientIP(r)
	if event.Actor == "" {
		event.Actor = event.RemoteAddr
	}
	event.UserAgent = r.UserAgent()
	event.RequestID = log.RequestIDFromContext(r.Context())
	if event.Resource == "" {
		event.Resource = r.URL.Path
	}
	l.Log(event)
}

// ManualRefresh logs a refresh requested over the API. result is one of the
// Result constants; details carries the job id or the failing stage.
func (l *Logger) ManualRefresh(r *http.Request, result string, details map[string]string) {
	typ := EventRefreshManual
	if result == ResultDenied {
		typ = EventRefreshRejected
	}
	l.LogRequest(r, Event{
		Type:    typ,
		Action:  "requested guide refresh",
		Result:  result,
		Details: details,
	})
}

// ConfigReload logs a configuration reload; err nil means success.
func (l *Logger) ConfigReload(_ context.Context, actor, path string, err error) {
	ev := Event{
		Type:     EventConfigReload,
		Actor:    actor,
		Action:   "reloaded configuration",
		Resource: path,
		Result:   ResultSuccess,
	}
	if err != nil {
		ev.Type = EventConfigReloadError
		ev.Result = ResultFailure
		ev.Details = map[string]string{"error": err.Error()}
	}
	l.Log(ev)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
