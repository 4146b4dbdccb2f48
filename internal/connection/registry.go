package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/log"
)

// StaticRegistry serves the connections declared in configuration.
type StaticRegistry struct {
	connections []Connection
}

// NewStaticRegistry converts configured connections, skipping disabled ones.
func NewStaticRegistry(settings *config.Settings) (*StaticRegistry, error) {
	r := &StaticRegistry{}
	for _, c := range settings.Connections {
		if c.Disabled {
			continue
		}
		conn, err := FromConfig(c)
		if err != nil {
			return nil, err
		}
		r.connections = append(r.connections, conn)
	}
	return r, nil
}

// FromConfig converts one configured connection.
func FromConfig(c config.Connection) (Connection, error) {
	conn := Connection{
		ID:      ID{ProviderID: c.Provider, Name: c.Name},
		Kind:    KindNative,
		Rootful: c.Rootful,
	}
	if c.Kind != config.ConnectionKindSSH {
		return conn, nil
	}

	sshCfg, err := ParseSSHURI(c.URI)
	if err != nil {
		return Connection{}, fmt.Errorf("connection %s: %w", conn.ID, err)
	}
	sshCfg.IdentityFile = c.Identity
	sshCfg.KnownHostsFile = c.KnownHosts
	sshCfg.InsecureHostKey = c.InsecureHostKey

	conn.Kind = KindSSH
	conn.SSH = sshCfg
	return conn, nil
}

// Started returns the configured connections.
func (r *StaticRegistry) Started(context.Context) ([]Connection, error) {
	out := make([]Connection, len(r.connections))
	copy(out, r.connections)
	return out, nil
}

// PodmanProvider is the provider id used for connections discovered from podman.
const PodmanProvider = "podman"

// podmanConnection mirrors one entry of `podman system connection list --format json`.
type podmanConnection struct {
	Name      string `json:"Name"`
	URI       string `json:"URI"`
	Identity  string `json:"Identity"`
	IsMachine bool   `json:"IsMachine"`
	Default   bool   `json:"Default"`
}

// PodmanRegistry discovers connections known to the local podman CLI.
type PodmanRegistry struct {
	runner execx.Runner
	logger log.Logger
}

// NewPodmanRegistry creates a registry that queries podman through runner.
func NewPodmanRegistry(runner execx.Runner, logger log.Logger) *PodmanRegistry {
	return &PodmanRegistry{runner: runner, logger: logger}
}

// Started lists podman's system connections.
func (r *PodmanRegistry) Started(ctx context.Context) ([]Connection, error) {
	res, err := r.runner.Run(ctx, "podman", []string{"system", "connection", "list", "--format", "json"}, execx.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to list podman connections: %w", err)
	}

	var entries []podmanConnection
	if err := json.Unmarshal([]byte(res.Stdout), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode podman connections: %w", err)
	}

	conns := make([]Connection, 0, len(entries))
	for _, e := range entries {
		conn, err := fromPodman(e)
		if err != nil {
			r.logger.Warn("Ignoring podman connection", "name", e.Name, "error", err)
			continue
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

func fromPodman(e podmanConnection) (Connection, error) {
	u, err := url.Parse(e.URI)
	if err != nil {
		return Connection{}, err
	}

	conn := Connection{ID: ID{ProviderID: PodmanProvider, Name: e.Name}}
	switch u.Scheme {
	case "unix":
		conn.Kind = KindNative
		conn.Rootful = strings.HasPrefix(u.Path, "/run/podman/")
	case "ssh":
		sshCfg, err := ParseSSHURI(e.URI)
		if err != nil {
			return Connection{}, err
		}
		sshCfg.IdentityFile = e.Identity
		sshCfg.InsecureHostKey = e.IsMachine
		conn.Kind = KindSSH
		conn.SSH = sshCfg
		conn.Rootful = sshCfg.User == "root"
	default:
		return Connection{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return conn, nil
}

// MultiRegistry merges registries, keeping the first connection seen for each id.
type MultiRegistry []Registry

// Started merges every registry. A failing registry is reported only when
// no registry produced connections.
func (m MultiRegistry) Started(ctx context.Context) ([]Connection, error) {
	var (
		out  []Connection
		errs []error
		seen = map[ID]struct{}{}
	)
	for _, r := range m {
		conns, err := r.Started(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, c := range conns {
			if _, dup := seen[c.ID]; dup {
				continue
			}
			seen[c.ID] = struct{}{}
			out = append(out, c)
		}
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Find returns the connection with the given id.
func Find(ctx context.Context, r Registry, id ID) (Connection, error) {
	conns, err := r.Started(ctx)
	if err != nil {
		return Connection{}, err
	}
	for _, c := range conns {
		if c.ID == id {
			return c, nil
		}
	}
	return Connection{}, fmt.Errorf("connection %s is not started", id)
}
