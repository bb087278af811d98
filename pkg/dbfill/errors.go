package dbfill

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	_, err := p.Parse(ctx)
//	if errors.Is(err, dbfill.ErrConflictRelation) {
//	    // a to-one relation points outside the exported tables
//	}
var (
	// ErrInvalidConfig indicates the exclusion overrides or configuration file are malformed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConflictRelation indicates a to-one relation targets an entity type that is not exported.
	ErrConflictRelation = errors.New("conflicting relation")

	// ErrSinkNotConfigured indicates classification started without a reporting sink.
	ErrSinkNotConfigured = errors.New("reporting sink is not configured")

	// ErrRegistry indicates the schema registry could not be loaded or is inconsistent.
	ErrRegistry = errors.New("schema registry error")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")
)

// InvalidConfigError reports a configuration value with the wrong shape.
// It matches ErrInvalidConfig with errors.Is.
type InvalidConfigError struct {
	Key    string // Configuration key, e.g. "tables_exclude.blog"
	Reason string // What is wrong with the value
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %q %s", e.Key, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *InvalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// ConflictRelationError reports a to-one relation whose target does not survive exclusion.
// A to-one field is part of the owning record's shape, so it cannot be dropped.
type ConflictRelationError struct {
	Source TypeRef // Entity type owning the relation
	Field  string  // Relation field name
	Target TypeRef // Referenced entity type
	Reason string  // "target is excluded" or "target is not registered"
}

func (e *ConflictRelationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "relation conflict in %s: field %q references %s: %s",
		e.Source, e.Field, e.Target, e.Reason)
	b.WriteString("\n\nHint: include ")
	b.WriteString(e.Target.String())
	b.WriteString(" (remove it from apps_exclude/tables_exclude) or exclude ")
	b.WriteString(e.Source.String())
	b.WriteString(" as well.")
	return b.String()
}

// Unwrap lets errors.Is match ErrConflictRelation.
func (e *ConflictRelationError) Unwrap() error {
	return ErrConflictRelation
}

var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrConflictRelation):
		return ExitRelationConflict
	case errors.Is(err, ErrRegistry):
		return ExitRegistryError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	}

	errStr := err.Error()

	// Cobra reports flag and argument misuse as plain errors
	for _, pattern := range usageErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return ExitUsageError
		}
	}

	// Check for common connection error patterns
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
