package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/crypto/ssh"

	"github.com/trly/quadlet-sync/internal/log"
)

// CommandChannel runs commands over one SSH client, one session per command.
type CommandChannel struct {
	link link[*ssh.Client]
}

// NewCommandChannel creates a channel that dials with dial. Nothing is
// dialed until Connect or Run.
func NewCommandChannel(dial Dialer, clk clock.Clock, delay, timeout time.Duration, logger log.Logger) *CommandChannel {
	return &CommandChannel{link: link[*ssh.Client]{
		name:    "command",
		open:    dial,
		wait:    func(c *ssh.Client) error { return c.Wait() },
		shut:    func(c *ssh.Client) error { return c.Close() },
		timeout: timeout,
		logger:  logger,
		retry:   newReconnector(clk, delay),
	}}
}

// Connect establishes the SSH connection.
func (c *CommandChannel) Connect(ctx context.Context) error {
	return c.link.connect(ctx)
}

// Run executes cmdline in a new session and returns its exit status.
// A non-zero status is not an error. Cancelling ctx kills the session.
func (c *CommandChannel) Run(ctx context.Context, cmdline string, stdout, stderr io.Writer) (int, error) {
	client, err := c.link.get(ctx)
	if err != nil {
		return -1, err
	}
	session, err := client.NewSession()
	if err != nil {
		return -1, fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer func() { _ = session.Close() }()

	session.Stdout = stdout
	session.Stderr = stderr

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = session.Signal(ssh.SIGKILL)
			_ = session.Close()
		case <-done:
		}
	}()

	err = session.Run(cmdline)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, fmt.Errorf("ssh command failed: %w", err)
}

// Close cancels any pending reconnect and closes the connection.
func (c *CommandChannel) Close() error {
	return c.link.close()
}
