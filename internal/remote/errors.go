package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrDisposed is returned by channels and executors used after Close.
	ErrDisposed = errors.New("remote executor disposed")
	// ErrNativeRemote is returned when a native executor is requested for a VM-backed connection.
	ErrNativeRemote = errors.New("native executor cannot serve a remote connection")
)

// ExecError represents a command that ran on the target and exited non-zero.
type ExecError struct {
	Command  string // The command line that was executed
	ExitCode int    // Exit status reported by the target, -1 when unknown
	Stdout   string
	Stderr   string
	Cause    error // The transport level error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + firstLine(e.Stderr)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExecError) Unwrap() error {
	return e.Cause
}

// Result returns the output carried by the failure as a regular result.
func (e *ExecError) Result() *ExecResult {
	return &ExecResult{Command: e.Command, Stdout: e.Stdout, Stderr: e.Stderr, ExitCode: e.ExitCode}
}

// AsExecError extracts an ExecError from err.
func AsExecError(err error) (*ExecError, bool) {
	var ee *ExecError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// IsExecError checks if an error is, or wraps, an ExecError.
func IsExecError(err error) bool {
	_, ok := AsExecError(err)
	return ok
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
