// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStrategy  = "strategy"
	FieldStage     = "stage"

	// Schedule fields
	FieldChannel    = "channel"
	FieldDay        = "day"
	FieldPanel      = "panel"
	FieldPoints     = "points"
	FieldProgrammes = "programmes"
	FieldTitle      = "title"

	// Path / URL fields
	FieldPath = "path"
	FieldURL  = "url"
)
