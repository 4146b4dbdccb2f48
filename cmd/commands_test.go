package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/engine"
)

func TestListCommand(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		env := newTestEnv(t)
		env.standard()

		out, err := env.execute("list")
		require.NoError(t, err)
		assert.Contains(t, out, "web.container")
		assert.Contains(t, out, "db.container")
		assert.Contains(t, out, "active")
		assert.Contains(t, out, localConnection)
	})

	t.Run("json with type filter", func(t *testing.T) {
		env := newTestEnv(t)
		web, db := env.standard()
		data := env.source("data.volume", "[Volume]\n")
		env.dryRun(block("web.service", web) + block("db.service", db) + block("data-volume.service", data))
		env.isActive("active\ninactive\nactive\n", "web.service", "db.service", "data-volume.service")

		out, err := env.execute("list", "-o", "json", "--type", "container")
		require.NoError(t, err)

		var rows []QuadletRow
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 2)
		for _, r := range rows {
			assert.Equal(t, "container", r.Type)
			assert.Equal(t, localConnection, r.Connection)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.execute("list", "--type", "service")
		assert.ErrorContains(t, err, "service")
	})

	t.Run("unknown connection", func(t *testing.T) {
		env := newTestEnv(t)
		env.standard()
		_, err := env.execute("list", "-c", "podman/elsewhere")
		require.Error(t, err)
		assert.True(t, engine.IsNotFoundError(err))
	})
}

func TestCatCommand(t *testing.T) {
	env := newTestEnv(t)
	web, _ := env.standard()

	out, err := env.execute("cat", "web")
	require.NoError(t, err)
	assert.Contains(t, out, "Image=nginx")

	out, err = env.execute("cat", "-o", "json", web)
	require.NoError(t, err)
	var f FileOutput
	require.NoError(t, json.Unmarshal([]byte(out), &f))
	assert.Equal(t, web, f.Path)
	assert.Equal(t, localConnection, f.Connection)

	_, err = env.execute("cat", "missing.container")
	assert.True(t, engine.IsNotFoundError(err))
}

func TestRmCommand(t *testing.T) {
	t.Run("removes and reloads", func(t *testing.T) {
		env := newTestEnv(t)
		web, db := env.standard()

		out, err := env.execute("rm", "web.service")
		require.NoError(t, err)
		assert.Contains(t, out, "removed "+web)

		assert.NoFileExists(t, web)
		assert.FileExists(t, db)
		assert.True(t, env.called("systemctl", "--user", "daemon-reload"))
	})

	t.Run("unknown reference removes nothing", func(t *testing.T) {
		env := newTestEnv(t)
		web, _ := env.standard()

		_, err := env.execute("rm", "web", "nope")
		require.Error(t, err)
		assert.FileExists(t, web)
		assert.False(t, env.called("systemctl", "--user", "daemon-reload"))
	})
}

func TestWriteCommand(t *testing.T) {
	t.Run("writes and collects", func(t *testing.T) {
		env := newTestEnv(t)
		env.dryRun("")
		src := filepath.Join(t.TempDir(), "app.container")
		require.NoError(t, os.WriteFile(src, []byte("[Container]\nImage=alpine\n"), 0o600))

		out, err := env.execute("write", src)
		require.NoError(t, err)

		dest := filepath.Join(env.dir, "app.container")
		assert.Contains(t, out, "wrote "+dest)
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "[Container]\nImage=alpine\n", string(data))
		assert.True(t, env.called("systemctl", "--user", "daemon-reload"))
	})

	t.Run("admin without reload", func(t *testing.T) {
		env := newTestEnv(t)
		src := filepath.Join(t.TempDir(), "local.yaml")
		require.NoError(t, os.WriteFile(src, []byte("kind: Pod\n"), 0o600))

		_, err := env.execute("write", "--admin", "--no-reload", "--dest", "app.yaml", src)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(env.adminDir, "app.yaml"))
		assert.False(t, env.called("systemctl", "--user", "daemon-reload"))
	})

	t.Run("invalid yaml is not written", func(t *testing.T) {
		env := newTestEnv(t)
		src := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(src, []byte("a: [\n"), 0o600))

		_, err := env.execute("write", src)
		require.Error(t, err)
		assert.NoFileExists(t, filepath.Join(env.dir, "bad.yaml"))
	})

	t.Run("dest needs a single file", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.execute("write", "--dest", "x.container", "a", "b")
		assert.ErrorContains(t, err, "--dest")
	})
}

func TestUnitCommands(t *testing.T) {
	env := newTestEnv(t)
	env.standard()

	out, err := env.execute("start", "db")
	require.NoError(t, err)
	assert.Contains(t, out, "started db.service")
	assert.True(t, env.called("systemctl", "--user", "start", "db.service"))

	out, err = env.execute("stop", "web.container")
	require.NoError(t, err)
	assert.Contains(t, out, "stopped web.service")

	out, err = env.execute("restart", "-o", "json", "web")
	require.NoError(t, err)
	var res OperationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "restart", res.Message)
	assert.Equal(t, []string{"web.service"}, res.Items)
}

func TestLogsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.standard()
	env.runner.SetOutput("journalctl", []string{"--user", "--no-pager", "-u", "web.service", "-n", "5"}, "line one\nline two\n")

	out, err := env.execute("logs", "web", "-n", "5")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", out)
}

func TestDepsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.standard()

	out, err := env.execute("deps", "-o", "json")
	require.NoError(t, err)

	var rows []DependencyRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "db.service", rows[0].Unit)
	assert.Equal(t, []string{"web.service"}, rows[0].RequiredBy)
	assert.Equal(t, "web.service", rows[1].Unit)
	assert.Equal(t, []string{"db.service"}, rows[1].Requires)

	out, err = env.execute("deps")
	require.NoError(t, err)
	assert.Contains(t, out, "db.service")
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnv(t)
	env.runner.SetOutput("podman", []string{"--version"}, "podman version 5.2.1\n")

	out, err := env.execute("version", "-o", "json")
	require.NoError(t, err)

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, localConnection, info.Connection)
	assert.Equal(t, "5.2.1", info.Podman)
	assert.NotEmpty(t, info.Generator)

	out, err = env.execute("version", "--client")
	require.NoError(t, err)
	assert.Contains(t, out, "quadlet-sync "+Version)
	assert.NotContains(t, out, "podman:")
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCommand(t *testing.T) {
	env := newTestEnv(t)
	env.standard()

	states := make(chan string, 8)
	watch := &WatchCommand{
		notify: func(state string) (bool, error) {
			states <- state
			return true, nil
		},
		watchdog: func() (time.Duration, error) { return 0, nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- watch.Run(ctx, env.app, time.Minute, &out) }()

	assert.Equal(t, "READY=1", <-states)
	assert.Contains(t, out.String(), "collected 2 quadlets from 1 connections")

	env.clock.Add(time.Minute)
	assert.Eventually(t, func() bool {
		return env.runner.CallCount(config.DefaultGeneratorFallback, "-user", "-dryrun") == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "STOPPING=1", <-states)
}

func TestWatchCommand_InvalidInterval(t *testing.T) {
	env := newTestEnv(t)
	err := NewWatchCommand().Run(context.Background(), env.app, 0, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid interval")
}

func TestDoctorCommand(t *testing.T) {
	env := newTestEnv(t)
	generator := filepath.Join(t.TempDir(), "quadlet")
	require.NoError(t, os.WriteFile(generator, nil, 0o600))
	env.app.Config.GeneratorFallback = generator

	env.runner.SetOutput("systemctl", []string{"--version"}, "systemd 255\n")
	env.runner.SetOutput("podman", []string{"--version"}, "podman version 4.9.3\n")

	out, err := env.execute("doctor", "-o", "json")
	require.NoError(t, err)

	var report DoctorReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, localConnection, report.Connection)
	assert.Zero(t, report.Failed)
	assert.Len(t, report.Checks, 4)

	env2 := newTestEnv(t)
	env2.runner.SetOutput("podman", []string{"--version"}, "podman version 4.3.0\n")
	out, err = env2.execute("doctor")
	require.Error(t, err)
	assert.Contains(t, out, "too old")
}
