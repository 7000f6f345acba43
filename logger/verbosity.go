package logger

// Verbosity level constants for the -v flag count.
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + startup, request summaries
	VerbosityDebug = 2 // -vv: + HTTP retries, section failures, config reloads
)

// VerbosityToLevelName maps -v counts onto level names understood by Initialize.
// A zero count keeps the configured level.
func VerbosityToLevelName(verbosity int, configured string) string {
	switch {
	case verbosity <= VerbosityUser:
		return configured
	case verbosity == VerbosityInfo:
		return "info"
	default:
		return "debug"
	}
}
