package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/testutil"
	"github.com/trly/quadlet-sync/internal/testutil/fakerunner"
)

const localConnection = "podman/local"

// testEnv is an App on the local native connection, backed by a fake runner
// and temporary quadlet directories.
type testEnv struct {
	t        *testing.T
	app      *App
	runner   *fakerunner.Runner
	clock    *clock.Mock
	dir      string
	adminDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		t:        t,
		runner:   fakerunner.New(),
		clock:    clock.NewMock(),
		dir:      t.TempDir(),
		adminDir: t.TempDir(),
	}
	provider := testutil.NewMockConfig(t,
		testutil.WithUserQuadletDir(env.dir),
		testutil.WithAdminQuadletDir(env.adminDir),
	)

	app, err := NewApp(testutil.NewTestLogger(t), provider, env.runner, env.clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	env.app = app
	return env
}

// execute runs the root command with args against the environment's App.
func (env *testEnv) execute(args ...string) (string, error) {
	env.t.Helper()

	// Persistent flags only touch the App when set, so start every run from defaults.
	env.app.OutputFormat = "text"
	env.app.ConnectionFlag = ""

	root := &RootCommand{newApp: func(context.Context, GlobalOptions) (*App, error) {
		return env.app, nil
	}}
	cmd := root.GetCobraCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (env *testEnv) source(name, content string) string {
	env.t.Helper()
	p := filepath.Join(env.dir, name)
	require.NoError(env.t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func block(service, sourcePath string, lines ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---%s---\n[Unit]\nSourcePath=%s\n", service, sourcePath)
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (env *testEnv) dryRun(stdout string) {
	env.runner.SetResult(config.DefaultGeneratorFallback, []string{"-user", "-dryrun"}, execx.Result{Stdout: stdout}, nil)
}

func (env *testEnv) isActive(output string, units ...string) {
	args := append([]string{"--user", "is-active", "--output=json"}, units...)
	env.runner.SetOutput("systemctl", args, output)
}

// standard sets up web (active, requires db) and db (inactive).
func (env *testEnv) standard() (web, db string) {
	web = env.source("web.container", "[Container]\nImage=nginx\n")
	db = env.source("db.container", "[Container]\nImage=postgres\n")
	env.dryRun(block("web.service", web, "Requires=db.service") + block("db.service", db))
	env.isActive("active\ninactive\n", "web.service", "db.service")
	return web, db
}

func (env *testEnv) called(name string, args ...string) bool {
	return env.runner.CallCount(name, args...) > 0
}
