package remote

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/log"
)

// generatorName is the podman generator installed in the systemd generator dir.
const generatorName = "podman-system-generator"

// QuadletBinaryResolver locates the quadlet generator on a connection.
// The first successful lookup is cached for the resolver's lifetime.
type QuadletBinaryResolver struct {
	exec     Executor
	fallback string
	logger   log.Logger

	mu     sync.Mutex
	cached string
}

// NewQuadletBinaryResolver creates a resolver. An empty fallback selects
// config.DefaultGeneratorFallback.
func NewQuadletBinaryResolver(exec Executor, fallback string, logger log.Logger) *QuadletBinaryResolver {
	if fallback == "" {
		fallback = config.DefaultGeneratorFallback
	}
	return &QuadletBinaryResolver{exec: exec, fallback: fallback, logger: logger}
}

// Resolve returns the generator path, or the fallback when discovery fails.
// Fallbacks are not cached.
func (r *QuadletBinaryResolver) Resolve(ctx context.Context) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != "" {
		return r.cached
	}
	p, err := r.discover(ctx)
	if err != nil {
		r.logger.Warn("Could not locate quadlet generator, using fallback", "fallback", r.fallback, "error", err)
		return r.fallback
	}
	r.cached = p
	return p
}

func (r *QuadletBinaryResolver) discover(ctx context.Context) (string, error) {
	res, err := r.exec.Exec(ctx, "systemd-path", ExecOptions{Args: []string{"systemd-system-generator"}})
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(res.Stdout)
	if !path.IsAbs(dir) {
		return "", fmt.Errorf("systemd-path returned non-absolute directory %q", dir)
	}
	return r.exec.RealPath(ctx, path.Join(dir, generatorName))
}

// PodmanVersionResolver reports the podman version on a connection.
type PodmanVersionResolver struct {
	exec   Executor
	logger log.Logger

	mu     sync.Mutex
	cached *semver.Version
}

// NewPodmanVersionResolver creates a resolver.
func NewPodmanVersionResolver(exec Executor, logger log.Logger) *PodmanVersionResolver {
	return &PodmanVersionResolver{exec: exec, logger: logger}
}

// Resolve returns the podman version, 0.0.0 when it cannot be determined.
func (r *PodmanVersionResolver) Resolve(ctx context.Context) *semver.Version {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil {
		return r.cached
	}
	v, err := r.discover(ctx)
	if err != nil {
		r.logger.Warn("Could not determine podman version", "error", err)
		return semver.New(0, 0, 0, "", "")
	}
	r.cached = v
	return v
}

func (r *PodmanVersionResolver) discover(ctx context.Context) (*semver.Version, error) {
	res, err := r.exec.Exec(ctx, "podman", ExecOptions{Args: []string{"--version"}})
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(res.Stdout)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty podman --version output")
	}
	v, err := semver.NewVersion(fields[len(fields)-1])
	if err != nil {
		return nil, fmt.Errorf("unparseable podman version %q: %w", fields[len(fields)-1], err)
	}
	return v, nil
}
