// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Source attributes
	SourceStrategyKey = "source.strategy"
	SourcePanelsKey   = "source.panels"
	SourceRequestsKey = "source.requests"

	// Guide attributes
	GuideDaysKey       = "guide.days"
	GuideChannelsKey   = "guide.channels"
	GuideProgrammesKey = "guide.programmes"

	// Job attributes
	JobIDKey       = "job.id"
	JobStatusKey   = "job.status"
	JobDurationKey = "job.duration_ms"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SourceAttributes describes how a page was read. Empty strategy is omitted.
func SourceAttributes(strategy string, panels int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if strategy != "" {
		attrs = append(attrs, attribute.String(SourceStrategyKey, strategy))
	}
	return append(attrs, attribute.Int(SourcePanelsKey, panels))
}

// GuideAttributes describes a generated guide.
func GuideAttributes(days, channels, programmes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(GuideDaysKey, days),
		attribute.Int(GuideChannelsKey, channels),
		attribute.Int(GuideProgrammesKey, programmes),
	}
}

// JobAttributes creates job-related span attributes.
func JobAttributes(jobID, status string, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, jobID),
		attribute.String(JobStatusKey, status),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
