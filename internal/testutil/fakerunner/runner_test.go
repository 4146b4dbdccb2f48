package fakerunner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trly/quadlet-sync/internal/execx"
)

func TestFakeRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("new runner starts empty", func(t *testing.T) {
		runner := New()
		assert.Empty(t, runner.GetCalls())
	})

	t.Run("set and get output", func(t *testing.T) {
		runner := New()
		runner.SetOutput("echo", []string{"hello"}, "test output")

		res, err := runner.Run(ctx, "echo", []string{"hello"}, execx.Options{})
		assert.NoError(t, err)
		assert.Equal(t, "test output", res.Stdout)
	})

	t.Run("set result with error keeps output", func(t *testing.T) {
		runner := New()
		expectedErr := errors.New("exit status 3")
		runner.SetResult("systemctl", []string{"is-active", "a.service"},
			execx.Result{Stdout: "inactive\n", ExitCode: 3}, expectedErr)

		res, err := runner.Run(ctx, "systemctl", []string{"is-active", "a.service"}, execx.Options{})
		assert.Equal(t, expectedErr, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "inactive\n", res.Stdout)
	})

	t.Run("set error", func(t *testing.T) {
		runner := New()
		expectedErr := errors.New("test error")
		runner.SetError("failing-command", nil, expectedErr)

		_, err := runner.Run(ctx, "failing-command", nil, execx.Options{})
		assert.Equal(t, expectedErr, err)
	})

	t.Run("captures calls and streams", func(t *testing.T) {
		runner := New()
		runner.SetResult("cmd", []string{"a"}, execx.Result{Stdout: "o", Stderr: "e"}, nil)

		var out, errOut bytes.Buffer
		_, _ = runner.Run(ctx, "cmd", []string{"a"}, execx.Options{
			Env:    map[string]string{"K": "V"},
			Stdout: &out,
			Stderr: &errOut,
		})
		_, _ = runner.Run(ctx, "cmd", []string{"a"}, execx.Options{})

		calls := runner.GetCalls()
		assert.Len(t, calls, 2)
		assert.Equal(t, "V", calls[0].Env["K"])
		assert.Equal(t, 2, runner.CallCount("cmd", "a"))
		assert.Equal(t, 0, runner.CallCount("cmd", "b"))
		assert.Equal(t, "o", out.String())
		assert.Equal(t, "e", errOut.String())
	})

	t.Run("reset clears state", func(t *testing.T) {
		runner := New()
		runner.SetOutput("echo", nil, "x")
		_, _ = runner.Run(ctx, "echo", nil, execx.Options{})
		runner.Reset()

		assert.Empty(t, runner.GetCalls())
		res, err := runner.Run(ctx, "echo", nil, execx.Options{})
		assert.NoError(t, err)
		assert.Empty(t, res.Stdout)
	})
}
