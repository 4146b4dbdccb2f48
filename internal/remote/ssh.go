package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/benbjohnson/clock"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/log"
)

// SSHOptions configures an SSHExecutor.
type SSHOptions struct {
	// Dialer overrides the dialer built from the connection's SSH config.
	Dialer         Dialer
	Clock          clock.Clock
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
	Logger         log.Logger
}

// SSHExecutor serves a VM-backed connection with an SSH command channel and
// a separate SFTP file channel.
type SSHExecutor struct {
	conn     connection.Connection
	commands *CommandChannel
	files    *FileChannel
	logger   log.Logger
}

// NewSSHExecutor creates an executor for conn. Call Init to connect.
func NewSSHExecutor(conn connection.Connection, opts SSHOptions) (*SSHExecutor, error) {
	if conn.SSH == nil {
		return nil, fmt.Errorf("connection %s has no ssh configuration", conn.ID)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = config.DefaultReconnectDelay
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = config.DefaultDialTimeout
	}
	dial := opts.Dialer
	if dial == nil {
		d, err := NewDialer(*conn.SSH, opts.DialTimeout)
		if err != nil {
			return nil, err
		}
		dial = d
	}

	logger := opts.Logger.With("connection", conn.ID.String())
	return &SSHExecutor{
		conn:     conn,
		commands: NewCommandChannel(dial, opts.Clock, opts.ReconnectDelay, opts.DialTimeout, logger),
		files:    NewFileChannel(dial, opts.Clock, opts.ReconnectDelay, opts.DialTimeout, logger),
		logger:   logger,
	}, nil
}

// Init connects both channels.
func (e *SSHExecutor) Init(ctx context.Context) error {
	if err := e.commands.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect command channel to %s: %w", e.conn.ID, err)
	}
	if err := e.files.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect file channel to %s: %w", e.conn.ID, err)
	}
	return nil
}

// Read returns the content of a remote file.
func (e *SSHExecutor) Read(ctx context.Context, p string) (string, error) {
	c, err := e.files.conn(ctx)
	if err != nil {
		return "", err
	}
	f, err := c.sftp.Open(c.expand(p))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return string(data), nil
}

// Write writes content to a remote file, creating parent directories.
func (e *SSHExecutor) Write(ctx context.Context, p, content string) error {
	c, err := e.files.conn(ctx)
	if err != nil {
		return err
	}
	target := c.expand(p)
	if err := c.sftp.MkdirAll(path.Dir(target)); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	f, err := c.sftp.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p, err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	e.logger.Debug("Wrote file", "path", target)
	return nil
}

// Rm removes a single remote file.
func (e *SSHExecutor) Rm(ctx context.Context, p string) error {
	c, err := e.files.conn(ctx)
	if err != nil {
		return err
	}
	if err := c.sftp.Remove(c.expand(p)); err != nil {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

// RealPath canonicalizes a remote path.
func (e *SSHExecutor) RealPath(ctx context.Context, p string) (string, error) {
	c, err := e.files.conn(ctx)
	if err != nil {
		return "", err
	}
	resolved, err := c.sftp.RealPath(c.expand(p))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return resolved, nil
}

// Exec runs a command on the remote host through the login shell.
func (e *SSHExecutor) Exec(ctx context.Context, command string, opts ExecOptions) (*ExecResult, error) {
	display := commandLine(command, opts.Args)
	e.logger.Debug("Executing remote command", "command", display)

	var stdout, stderr bytes.Buffer
	var outW, errW io.Writer = &stdout, &stderr
	if ol := newLineLogger(opts.Logger, "stdout"); ol != nil {
		el := newLineLogger(opts.Logger, "stderr")
		outW, errW = io.MultiWriter(&stdout, ol), io.MultiWriter(&stderr, el)
		defer ol.Flush()
		defer el.Flush()
	}

	code, err := e.commands.Run(ctx, shellCommand(command, opts.Args, opts.Env), outW, errW)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrDisposed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to execute %s: %w", display, err)
	}
	if code != 0 {
		return nil, &ExecError{
			Command:  display,
			ExitCode: code,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}
	return &ExecResult{Command: display, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// Close closes both channels and cancels pending reconnects.
func (e *SSHExecutor) Close() error {
	return errors.Join(e.commands.Close(), e.files.Close())
}

var _ Executor = (*SSHExecutor)(nil)

// shellCommand renders a POSIX shell command line with env assignments.
func shellCommand(command string, args []string, env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, k+"="+shellescape.Quote(env[k]))
	}
	parts = append(parts, shellescape.QuoteCommand(append([]string{command}, args...)))
	return strings.Join(parts, " ")
}
