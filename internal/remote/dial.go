package remote

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/trly/quadlet-sync/internal/connection"
)

// Dialer opens a new SSH client connection.
type Dialer func(ctx context.Context) (*ssh.Client, error)

// NewDialer returns a Dialer for cfg. Host keys are checked against the
// known_hosts file unless cfg.InsecureHostKey is set.
func NewDialer(cfg connection.SSHConfig, timeout time.Duration) (Dialer, error) {
	clientCfg, err := clientConfig(cfg, timeout)
	if err != nil {
		return nil, err
	}
	addr := cfg.Addr()

	return func(ctx context.Context) (*ssh.Client, error) {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			_ = conn.SetDeadline(deadline)
		}
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
		}
		_ = conn.SetDeadline(time.Time{})
		return ssh.NewClient(c, chans, reqs), nil
	}, nil
}

func clientConfig(cfg connection.SSHConfig, timeout time.Duration) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if cfg.IdentityFile != "" {
		key, err := os.ReadFile(expandHome(cfg.IdentityFile)) // #nosec G304 - identity path is user configuration
		if err != nil {
			return nil, fmt.Errorf("failed to read identity %s: %w", cfg.IdentityFile, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse identity %s: %w", cfg.IdentityFile, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}

	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         timeout,
	}, nil
}

func hostKeyCallback(cfg connection.SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureHostKey {
		return ssh.InsecureIgnoreHostKey(), nil // #nosec G106 - opt-in, used for local podman machines
	}
	file := cfg.KnownHostsFile
	if file == "" {
		file = "~/.ssh/known_hosts"
	}
	cb, err := knownhosts.New(expandHome(file))
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts %s: %w", file, err)
	}
	return cb, nil
}

func expandHome(p string) string {
	if p != "~" && (len(p) < 2 || p[:2] != "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
