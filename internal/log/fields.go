// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID  = "request_id"
	FieldLocationID = "location_id"
	FieldCameraID   = "camera_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Recording fields
	FieldDuration = "duration_s"
	FieldTempPath = "temp_path"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath      = "path"
	FieldBaseURL   = "base_url"
	FieldFinalPath = "final_path"
)
