package dbfill

// Logger provides a pluggable logging interface for dbfill operations.
// Implementations must be safe for concurrent use by multiple goroutines.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only logged when verbose mode is enabled.
	Verbose(format string, args ...interface{})

	// Info logs informational messages about normal operations.
	Info(format string, args ...interface{})

	// Warn logs recoverable problems, e.g. unknown configuration keys.
	Warn(format string, args ...interface{})

	// Error logs error messages.
	Error(format string, args ...interface{})
}

// Sink receives report lines produced while classifying entity types.
// Implementations must serialize concurrent WriteLine calls.
type Sink interface {
	WriteLine(message string)
}
