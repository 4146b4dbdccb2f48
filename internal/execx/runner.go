// Package execx provides a testable abstraction for command execution.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

// Result holds the separated output streams of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Options tunes a single command invocation.
type Options struct {
	// Env is added on top of the current process environment.
	Env map[string]string
	// Stdout and Stderr, when set, receive output while the command runs.
	Stdout io.Writer
	Stderr io.Writer
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Code  int
	Cause error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExitError) Unwrap() error {
	return e.Cause
}

// Runner defines an interface for executing external commands.
//
// A command that starts and exits non-zero yields its Result together with an
// *ExitError; failures to start return a zero Result and the start error.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts Options) (Result, error)
}

// RealRunner implements Runner using os/exec.
type RealRunner struct{}

// NewRealRunner creates a new RealRunner.
func NewRealRunner() *RealRunner {
	return &RealRunner{}
}

// Run executes a command and returns its stdout and stderr separately.
func (r *RealRunner) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...) // #nosec G204 - callers pass fixed binaries

	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), envList(opts.Env)...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = teeTo(&stdout, opts.Stdout)
	cmd.Stderr = teeTo(&stderr, opts.Stderr)

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Code: res.ExitCode, Cause: err}
	}
	return res, err
}

func teeTo(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// envList renders env as sorted KEY=VALUE pairs.
func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
