package logger

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldSessionID = "session_id"
	FieldUserID    = "user_id"

	// Components
	FieldComponent = "component"
	FieldProvider  = "provider"
	FieldSection   = "section"

	// Operations
	FieldOperation = "operation"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldURL       = "url"
	FieldQuery     = "query"

	// Domain
	FieldPropertyID = "property_id"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and status
	FieldCount   = "count"
	FieldStatus  = "status"
	FieldAttempt = "attempt"
	FieldCached  = "cached"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
)
