package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/connection"
	"github.com/trly/quadlet-sync/internal/execx"
	"github.com/trly/quadlet-sync/internal/testutil"
	"github.com/trly/quadlet-sync/internal/testutil/fakerunner"
)

func TestWorker_SystemctlExec(t *testing.T) {
	runner := fakerunner.New()
	runner.SetResult("systemctl", []string{"--user", "is-active", "a.service"},
		execx.Result{Stdout: "inactive\n", ExitCode: 3}, &execx.ExitError{Code: 3})

	w := NewWorker(localConn, newTestNative(t, runner), "", testutil.NewTestLogger(t))

	res, err := w.SystemctlExec(context.Background(), "is-active", "a.service")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "inactive\n", res.Stdout)
}

func TestWorker_Rootful(t *testing.T) {
	runner := fakerunner.New()
	conn := localConn
	conn.Rootful = true
	w := NewWorker(conn, newTestNative(t, runner), "", testutil.NewTestLogger(t))

	_, err := w.SystemctlExec(context.Background(), "daemon-reload")
	require.NoError(t, err)
	assert.Equal(t, 1, runner.CallCount("systemctl", "daemon-reload"))
}

func TestWorker_QuadletExec(t *testing.T) {
	runner := fakerunner.New()
	runner.SetError("systemd-path", systemdPathArgs, errors.New("missing"))
	runner.SetOutput("/opt/quadlet", []string{"-user", "-dryrun"}, "---a.service---\n")

	w := NewWorker(localConn, newTestNative(t, runner), "/opt/quadlet", testutil.NewTestLogger(t))

	res, err := w.QuadletExec(context.Background(), "-dryrun")
	require.NoError(t, err)
	assert.Equal(t, "---a.service---\n", res.Stdout)
}

func TestWorker_JournalctlExecReturnsErrors(t *testing.T) {
	runner := fakerunner.New()
	runner.SetResult("journalctl", []string{"--user", "-u", "a.service"}, execx.Result{}, &execx.ExitError{Code: 1})
	w := NewWorker(localConn, newTestNative(t, runner), "", testutil.NewTestLogger(t))

	_, err := w.JournalctlExec(context.Background(), "-u", "a.service")
	assert.True(t, IsExecError(err))
}

func TestPool(t *testing.T) {
	runner := fakerunner.New()
	created := 0
	factory := func(_ context.Context, conn connection.Connection) (*Worker, error) {
		created++
		e, err := NewNativeExecutor(conn, runner, testutil.NewTestLogger(t))
		if err != nil {
			return nil, err
		}
		return NewWorker(conn, e, "", testutil.NewTestLogger(t)), nil
	}
	p := NewPool(factory)
	ctx := context.Background()

	w1, err := p.Get(ctx, localConn)
	require.NoError(t, err)
	w2, err := p.Get(ctx, localConn)
	require.NoError(t, err)
	assert.Same(t, w1, w2)
	assert.Equal(t, 1, created)

	_, err = p.Get(ctx, connection.Connection{
		ID:   connection.ID{ProviderID: "podman", Name: "vm"},
		Kind: connection.KindSSH,
		SSH:  &connection.SSHConfig{Host: "h"},
	})
	assert.ErrorIs(t, err, ErrNativeRemote)

	require.NoError(t, p.Close())
	_, err = p.Get(ctx, localConn)
	assert.ErrorIs(t, err, ErrDisposed)
}
