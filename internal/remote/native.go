package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/log"
)

// NativeExecutor serves a local connection with local processes and files.
type NativeExecutor struct {
	runner execx.Runner
	logger log.Logger
	home   string
}

// NewNativeExecutor creates an executor for a local connection.
// VM-backed connections are rejected.
func NewNativeExecutor(conn connection.Connection, runner execx.Runner, logger log.Logger) (*NativeExecutor, error) {
	if conn.Remote() {
		return nil, fmt.Errorf("%w: %s", ErrNativeRemote, conn.ID)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}
	return &NativeExecutor{runner: runner, logger: logger, home: home}, nil
}

func (e *NativeExecutor) expand(p string) string {
	switch {
	case p == "~":
		return e.home
	case strings.HasPrefix(p, "~/"):
		return filepath.Join(e.home, p[2:])
	}
	return p
}

// Read returns the content of a local file.
func (e *NativeExecutor) Read(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(e.expand(path)) // #nosec G304 - paths come from the quadlet snapshot
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// Write writes content to a local file, creating parent directories.
func (e *NativeExecutor) Write(_ context.Context, path, content string) error {
	target := e.expand(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	// #nosec G306 - the systemd generator must be able to read quadlet files
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	e.logger.Debug("Wrote file", "path", target)
	return nil
}

// Rm removes a single local file.
func (e *NativeExecutor) Rm(_ context.Context, path string) error {
	if err := os.Remove(e.expand(path)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// RealPath resolves symlinks and returns an absolute path.
func (e *NativeExecutor) RealPath(_ context.Context, path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(e.expand(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return filepath.Abs(resolved)
}

// Exec runs a local process.
func (e *NativeExecutor) Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error) {
	cmdline := commandLine(command, opts.Args)
	e.logger.Debug("Executing command", "command", cmdline)

	runOpts := execx.Options{Env: opts.Env}
	stdout, stderr := newLineLogger(opts.Logger, "stdout"), newLineLogger(opts.Logger, "stderr")
	if stdout != nil {
		runOpts.Stdout, runOpts.Stderr = stdout, stderr
		defer stdout.Flush()
		defer stderr.Flush()
	}

	res, err := e.runner.Run(ctx, command, opts.Args, runOpts)
	if err != nil {
		var exitErr *execx.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExecError{
				Command:  cmdline,
				ExitCode: exitErr.Code,
				Stdout:   res.Stdout,
				Stderr:   res.Stderr,
				Cause:    err,
			}
		}
		return nil, fmt.Errorf("failed to execute %s: %w", cmdline, err)
	}

	return &ExecResult{Command: cmdline, Stdout: res.Stdout, Stderr: res.Stderr}, nil
}

// Close is a no-op for local execution.
func (e *NativeExecutor) Close() error {
	return nil
}

var _ Executor = (*NativeExecutor)(nil)
