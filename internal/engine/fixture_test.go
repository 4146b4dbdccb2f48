package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/quadlet"
	"github.com/trly/quadlet-sync/internal/remote"
	"github.com/trly/quadlet-sync/internal/testutil"
	"github.com/trly/quadlet-sync/internal/testutil/fakerunner"
)

var localID = connection.ID{ProviderID: "podman", Name: "local"}

var dryRunArgs = []string{"-user", "-dryrun"}

// fixture wires an engine to a native worker backed by a fake runner and a
// temporary quadlet directory.
type fixture struct {
	t        *testing.T
	engine   *Engine
	runner   *fakerunner.Runner
	clock    *clock.Mock
	dir      string
	adminDir string

	mu        sync.Mutex
	snapshots []Snapshot
	outcomes  []Outcome
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:        t,
		runner:   fakerunner.New(),
		clock:    clock.NewMock(),
		dir:      t.TempDir(),
		adminDir: t.TempDir(),
	}

	registry, err := connection.NewStaticRegistry(&config.Settings{Connections: []config.Connection{
		{Provider: "podman", Name: "local", Kind: config.ConnectionKindNative},
	}})
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	pool := remote.NewPool(func(_ context.Context, conn connection.Connection) (*remote.Worker, error) {
		exec, err := remote.NewNativeExecutor(conn, f.runner, logger)
		if err != nil {
			return nil, err
		}
		return remote.NewWorker(conn, exec, "", logger), nil
	})
	t.Cleanup(func() { _ = pool.Close() })

	f.engine = New(Options{
		Registry: registry,
		Workers:  pool,
		Notifier: NotifierFunc(func(s Snapshot) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.snapshots = append(f.snapshots, s)
		}),
		Recorder: RecorderFunc(func(o Outcome) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.outcomes = append(f.outcomes, o)
		}),
		Clock:           f.clock,
		Logger:          logger,
		UserQuadletDir:  f.dir,
		AdminQuadletDir: f.adminDir,
	})
	t.Cleanup(func() { _ = f.engine.Close() })
	return f
}

func (f *fixture) notifications() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots)
}

func (f *fixture) lastOutcome() Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.outcomes)
	return f.outcomes[len(f.outcomes)-1]
}

// source creates a quadlet source file and returns its path.
func (f *fixture) source(name, content string) string {
	f.t.Helper()
	p := filepath.Join(f.dir, name)
	require.NoError(f.t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// block renders one dry-run unit block.
func block(service, sourcePath string, lines ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---%s---\n", service)
	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "SourcePath=%s\n", sourcePath)
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (f *fixture) dryRun(stdout, stderr string) {
	f.runner.SetResult(config.DefaultGeneratorFallback, dryRunArgs, execx.Result{Stdout: stdout, Stderr: stderr}, nil)
}

func (f *fixture) isActive(output string, units ...string) {
	args := append([]string{"--user", "is-active", "--output=json"}, units...)
	f.runner.SetOutput("systemctl", args, output)
}

func (f *fixture) quadletByPath(p string) quadlet.Quadlet {
	f.t.Helper()
	qs, err := f.engine.Quadlets(localID)
	require.NoError(f.t, err)
	for _, q := range qs {
		if q.Path == p {
			return q
		}
	}
	f.t.Fatalf("no quadlet for %s", p)
	return quadlet.Quadlet{}
}

// standard sets up web (active), db (inactive) and a broken pod.
func (f *fixture) standard() (web, db, broken string) {
	web = f.source("web.container", "[Container]\nImage=nginx\n")
	db = f.source("db.container", "[Container]\nImage=postgres\n")
	broken = filepath.Join(f.dir, "broken.pod")

	f.dryRun(
		block("web.service", web, "Requires=db.service")+block("db.service", db),
		"quadlet-generator[1]: Loading source unit file "+web+"\n"+
			"quadlet-generator[1]: Loading source unit file "+broken+"\n"+
			"quadlet-generator[1]: converting \"broken.pod\": bad key\n",
	)
	f.isActive("active\ninactive\n", "web.service", "db.service")
	return web, db, broken
}
