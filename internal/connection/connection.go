// Package connection identifies the container-engine connections quadlet-sync works against.
package connection

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ID is the stable identity of one connection; it is comparable and used as a map key.
type ID struct {
	ProviderID string `json:"providerId" yaml:"providerId"`
	Name       string `json:"name" yaml:"name"`
}

// String renders the id as provider/name.
func (id ID) String() string {
	return id.ProviderID + "/" + id.Name
}

// ParseID parses provider/name.
func ParseID(s string) (ID, error) {
	provider, name, ok := strings.Cut(s, "/")
	if !ok || provider == "" || name == "" {
		return ID{}, fmt.Errorf("invalid connection %q: expected provider/name", s)
	}
	return ID{ProviderID: provider, Name: name}, nil
}

// Kind selects the transport used for a connection.
type Kind string

// Connection kinds.
const (
	KindNative Kind = "native"
	KindSSH    Kind = "ssh"
)

// SSHConfig carries what is needed to reach a VM-backed engine.
type SSHConfig struct {
	User           string
	Host           string
	Port           int
	IdentityFile   string
	KnownHostsFile string
	// InsecureHostKey disables host key verification.
	InsecureHostKey bool
}

// Addr returns host:port, defaulting to port 22.
func (c SSHConfig) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Connection is one container-engine connection.
type Connection struct {
	ID   ID
	Kind Kind
	SSH  *SSHConfig
	// Rootful connections manage system units instead of user units.
	Rootful bool
}

// Remote reports whether the connection is only reachable over SSH.
func (c Connection) Remote() bool {
	return c.Kind == KindSSH
}

// String renders the connection id.
func (c Connection) String() string {
	return c.ID.String()
}

// ParseSSHURI parses ssh://user@host:port/... into an SSHConfig.
func ParseSSHURI(uri string) (*SSHConfig, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid ssh uri %q: %w", uri, err)
	}
	if u.Scheme != "ssh" {
		return nil, fmt.Errorf("invalid ssh uri %q: scheme must be ssh", uri)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid ssh uri %q: missing host", uri)
	}

	cfg := &SSHConfig{Host: u.Hostname(), User: u.User.Username()}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid ssh uri %q: bad port", uri)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// Registry enumerates the connections that are currently started.
type Registry interface {
	Started(ctx context.Context) ([]Connection, error)
}
