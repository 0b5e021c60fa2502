package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so dispatcher,
// consumer and import logs can be correlated in log aggregation.
const (
	// ========================================================================
	// Outbox / dispatch
	// ========================================================================
	KeyJob       = "job"        // Worker job name (dispatch_outbox_events, ...)
	KeyEventType = "event_type" // Outbox event type tag
	KeyOutboxID  = "outbox_id"  // Outbox event row id
	KeyAttempts  = "attempts"   // Delivery attempt count
	KeyStrategy  = "strategy"   // Dispatch strategy (direct, broker)
	KeyDedupKey  = "dedup_key"  // Consumer-side idempotency hint

	// ========================================================================
	// Import pipeline
	// ========================================================================
	KeyJobKey     = "job_key"     // Staging job key
	KeyImportType = "import_type" // Registered import type
	KeyRowNumber  = "row_number"  // 1-based file row (header is row 1)

	// ========================================================================
	// Messaging
	// ========================================================================
	KeyRequestID = "message_request_id"
	KeyMessageID = "message_id"
	KeySessionID = "session_id"
	KeyNetwork   = "network" // Messenger network tag (telegram, whatsapp)

	// ========================================================================
	// Generic
	// ========================================================================
	KeyError      = "error"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
)

// Err returns a standard error attribute, tolerating nil errors.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// FormatFields converts key-value pairs to a map for testing/debugging.
// Expects pairs: key1, value1, key2, value2, ...
func FormatFields(args ...any) map[string]any {
	fields := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", args[i])
		}
		fields[key] = args[i+1]
	}
	return fields
}
