// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldJobID     = "job_id"
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"

	// Guide pipeline fields
	FieldRegion    = "region"
	FieldWindow    = "window"
	FieldBatch     = "batch"
	FieldAttempt   = "attempt"
	FieldChannels  = "channels"
	FieldListings  = "listings"
	FieldElapsed   = "elapsed_ms"
	FieldOperation = "operation"

	// Path / URL fields
	FieldPath   = "path"
	FieldSocket = "socket"
	FieldURL    = "url"
)
