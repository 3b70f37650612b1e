// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

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

	// Recording attributes
	RecordingLocationKey = "recording.location_id"
	RecordingCameraKey   = "recording.camera_id"
	RecordingDurationKey = "recording.duration_s"
	RecordingOutcomeKey  = "recording.outcome"
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

// RecordingAttributes identifies a recording pipeline run.
func RecordingAttributes(locationID, cameraID string, durationSeconds int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RecordingLocationKey, locationID),
		attribute.String(RecordingCameraKey, cameraID),
		attribute.Int(RecordingDurationKey, durationSeconds),
	}
}
