package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/remote"
	"github.com/trly/quadlet-sync/internal/testutil"
	"github.com/trly/quadlet-sync/internal/testutil/fakerunner"
)

func newTarget(t *testing.T, runner *fakerunner.Runner, generator string) *remote.Worker {
	t.Helper()
	conn := connection.Connection{
		ID:   connection.ID{ProviderID: "podman", Name: "local"},
		Kind: connection.KindNative,
	}
	logger := testutil.NewTestLogger(t)
	exec, err := remote.NewNativeExecutor(conn, runner, logger)
	require.NoError(t, err)
	w := remote.NewWorker(conn, exec, generator, logger)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func byName(results []CheckResult) map[string]CheckResult {
	out := make(map[string]CheckResult, len(results))
	for _, r := range results {
		out[r.Name] = r
	}
	return out
}

func TestSystemRequirements(t *testing.T) {
	generator := filepath.Join(t.TempDir(), "quadlet")
	require.NoError(t, os.WriteFile(generator, []byte("#!/bin/sh\n"), 0o600))
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope")

	t.Run("all passing", func(t *testing.T) {
		runner := fakerunner.New()
		runner.SetOutput("systemctl", []string{"--version"}, "systemd 255 (255.4-1)\n+PAM +AUDIT\n")
		runner.SetOutput("podman", []string{"--version"}, "podman version 5.2.1\n")

		results := NewValidator(testutil.NewTestLogger(t)).SystemRequirements(context.Background(), newTarget(t, runner, generator), dir, missing)
		assert.Zero(t, Failed(results))

		got := byName(results)
		assert.Equal(t, "systemd 255 (255.4-1)", got["systemd"].Message)
		assert.Equal(t, "podman 5.2.1", got["podman"].Message)
		assert.Equal(t, generator, got["quadlet generator"].Message)
		assert.Contains(t, got["quadlet directory "+missing].Message, "not created yet")
	})

	t.Run("old podman", func(t *testing.T) {
		runner := fakerunner.New()
		runner.SetOutput("systemctl", []string{"--version"}, "systemd 247\n")
		runner.SetOutput("podman", []string{"--version"}, "podman version 3.4.4\n")

		results := NewValidator(testutil.NewTestLogger(t)).SystemRequirements(context.Background(), newTarget(t, runner, generator))
		got := byName(results)
		assert.False(t, got["podman"].Passed)
		assert.Contains(t, got["podman"].Message, "too old")
		assert.Equal(t, 1, Failed(results))
	})

	t.Run("nothing installed", func(t *testing.T) {
		runner := fakerunner.New()
		runner.SetError("systemctl", []string{"--version"}, assert.AnError)
		runner.SetError("podman", []string{"--version"}, assert.AnError)

		results := NewValidator(testutil.NewTestLogger(t)).SystemRequirements(context.Background(), newTarget(t, runner, filepath.Join(dir, "missing-generator")))
		assert.Equal(t, 3, Failed(results))
		for _, r := range results {
			assert.NotEmpty(t, r.Suggestions, r.Name)
		}
	})

	t.Run("default generator fallback", func(t *testing.T) {
		runner := fakerunner.New()
		results := NewValidator(testutil.NewTestLogger(t)).SystemRequirements(context.Background(), newTarget(t, runner, ""))
		got := byName(results)
		if _, err := os.Stat(config.DefaultGeneratorFallback); err != nil {
			assert.False(t, got["quadlet generator"].Passed)
		}
		assert.Contains(t, got["quadlet generator"].Message, config.DefaultGeneratorFallback)
	})
}
