package quadlet

import (
	"errors"
	"fmt"
)

// ErrMissingSourcePath is returned for generated units without [Unit] SourcePath.
var ErrMissingSourcePath = errors.New("missing SourcePath in [Unit]")

// ParseError represents a failure to interpret a file name or unit.
type ParseError struct {
	Input  string // The file name, path or unit name being parsed
	Reason string // Human readable cause
	Cause  error  // Optional underlying error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot parse %q: %s: %v", e.Input, e.Reason, e.Cause)
	}
	return fmt.Sprintf("cannot parse %q: %s", e.Input, e.Reason)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

func newParseError(input, reason string, cause error) *ParseError {
	return &ParseError{Input: input, Reason: reason, Cause: cause}
}

// IsParseError checks if an error is, or wraps, a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
