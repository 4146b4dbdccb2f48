package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/trly/quadlet-sync/internal/log"
)

// sftpConn is an SFTP session together with the SSH client carrying it.
type sftpConn struct {
	ssh  *ssh.Client
	sftp *sftp.Client
	home string
}

func (c *sftpConn) close() error {
	return errors.Join(c.sftp.Close(), c.ssh.Close())
}

// expand replaces a leading ~ with the remote home directory.
func (c *sftpConn) expand(p string) string {
	switch {
	case p == "~":
		return c.home
	case strings.HasPrefix(p, "~/"):
		return path.Join(c.home, p[2:])
	}
	return p
}

// FileChannel serves file operations over SFTP on its own SSH client.
type FileChannel struct {
	link link[*sftpConn]
}

// NewFileChannel creates a channel that dials with dial. Nothing is
// dialed until Connect or first use.
func NewFileChannel(dial Dialer, clk clock.Clock, delay, timeout time.Duration, logger log.Logger) *FileChannel {
	return &FileChannel{link: link[*sftpConn]{
		name:    "file",
		open:    openSFTP(dial),
		wait:    func(c *sftpConn) error { return c.sftp.Wait() },
		shut:    func(c *sftpConn) error { return c.close() },
		timeout: timeout,
		logger:  logger,
		retry:   newReconnector(clk, delay),
	}}
}

func openSFTP(dial Dialer) func(context.Context) (*sftpConn, error) {
	return func(ctx context.Context) (*sftpConn, error) {
		client, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		sc, err := sftp.NewClient(client)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to start sftp: %w", err)
		}
		home, err := sc.Getwd()
		if err != nil {
			_ = sc.Close()
			_ = client.Close()
			return nil, fmt.Errorf("failed to determine remote home: %w", err)
		}
		return &sftpConn{ssh: client, sftp: sc, home: home}, nil
	}
}

// Connect establishes the SFTP session.
func (f *FileChannel) Connect(ctx context.Context) error {
	return f.link.connect(ctx)
}

func (f *FileChannel) conn(ctx context.Context) (*sftpConn, error) {
	return f.link.get(ctx)
}

// Close cancels any pending reconnect and closes the session.
func (f *FileChannel) Close() error {
	return f.link.close()
}
