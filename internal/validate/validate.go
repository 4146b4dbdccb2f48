// Package validate checks that a connection can run quadlets.
package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/log"
	"github.com/trly/quadlet-sync/internal/remote"
)

// MinPodmanVersion is the first podman release shipping the quadlet generator.
const MinPodmanVersion = ">= 4.4.0"

// Target is the part of a worker the validator needs.
type Target interface {
	Connection() connection.Connection
	Executor() remote.Executor
	PodmanVersion(ctx context.Context) *semver.Version
	QuadletBinary(ctx context.Context) string
}

// CheckResult represents the result of one diagnostic check.
type CheckResult struct {
	Name        string   `json:"name" yaml:"name"`
	Passed      bool     `json:"passed" yaml:"passed"`
	Message     string   `json:"message" yaml:"message"`
	Suggestions []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
}

// Validator runs system requirement checks against a connection.
type Validator struct {
	logger    log.Logger
	minPodman *semver.Constraints
}

// NewValidator creates a new Validator with the provided logger.
func NewValidator(logger log.Logger) *Validator {
	c, err := semver.NewConstraint(MinPodmanVersion)
	if err != nil {
		panic(fmt.Sprintf("invalid podman constraint %q: %v", MinPodmanVersion, err))
	}
	return &Validator{logger: logger, minPodman: c}
}

// SystemRequirements runs every check. quadletDirs are reported when missing
// but do not fail, since writes create them.
func (v *Validator) SystemRequirements(ctx context.Context, t Target, quadletDirs ...string) []CheckResult {
	id := t.Connection().ID.String()
	results := []CheckResult{
		v.checkSystemd(ctx, t),
		v.checkPodman(ctx, t),
		v.checkGenerator(ctx, t),
	}
	for _, dir := range quadletDirs {
		results = append(results, v.checkDirectory(ctx, t, dir))
	}
	for _, r := range results {
		v.logger.Debug("Requirement checked", "connection", id, "check", r.Name, "passed", r.Passed, "message", r.Message)
	}
	return results
}

// Failed counts the checks that did not pass.
func Failed(results []CheckResult) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}

func (v *Validator) checkSystemd(ctx context.Context, t Target) CheckResult {
	res, err := t.Executor().Exec(ctx, "systemctl", remote.ExecOptions{Args: []string{"--version"}})
	if err != nil {
		return CheckResult{
			Name:        "systemd",
			Message:     fmt.Sprintf("systemd not found: %v", err),
			Suggestions: []string{"quadlets require a systemd-based host", "Ensure systemctl is in PATH"},
		}
	}
	first, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	if !strings.HasPrefix(first, "systemd") {
		return CheckResult{Name: "systemd", Message: fmt.Sprintf("unexpected systemctl --version output %q", first)}
	}
	return CheckResult{Name: "systemd", Passed: true, Message: first}
}

func (v *Validator) checkPodman(ctx context.Context, t Target) CheckResult {
	ver := t.PodmanVersion(ctx)
	if ver.Equal(semver.New(0, 0, 0, "", "")) {
		return CheckResult{
			Name:        "podman",
			Message:     "podman not found",
			Suggestions: []string{"Install podman", "Ensure podman is in PATH"},
		}
	}
	if ok, errs := v.minPodman.Validate(ver); !ok {
		return CheckResult{
			Name:        "podman",
			Message:     fmt.Sprintf("podman %s is too old: %v", ver, errors.Join(errs...)),
			Suggestions: []string{"Upgrade podman to 4.4 or newer"},
		}
	}
	return CheckResult{Name: "podman", Passed: true, Message: "podman " + ver.String()}
}

func (v *Validator) checkGenerator(ctx context.Context, t Target) CheckResult {
	p := t.QuadletBinary(ctx)
	if _, err := t.Executor().RealPath(ctx, p); err != nil {
		return CheckResult{
			Name:        "quadlet generator",
			Message:     fmt.Sprintf("%s not found: %v", p, err),
			Suggestions: []string{"Ensure podman is properly installed", "Set generatorFallback in the config file"},
		}
	}
	return CheckResult{Name: "quadlet generator", Passed: true, Message: p}
}

func (v *Validator) checkDirectory(ctx context.Context, t Target, dir string) CheckResult {
	name := "quadlet directory " + dir
	resolved, err := t.Executor().RealPath(ctx, dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return CheckResult{Name: name, Passed: true, Message: "not created yet, the first write creates it"}
	case err != nil:
		return CheckResult{
			Name:        name,
			Message:     err.Error(),
			Suggestions: []string{"Check the permissions of " + dir},
		}
	}
	return CheckResult{Name: name, Passed: true, Message: resolved}
}
