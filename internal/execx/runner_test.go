package execx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealRunner_Run(t *testing.T) {
	runner := NewRealRunner()
	ctx := context.Background()

	t.Run("successful command execution", func(t *testing.T) {
		res, err := runner.Run(ctx, "echo", []string{"hello", "world"}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "hello world\n", res.Stdout)
		assert.Empty(t, res.Stderr)
		assert.Zero(t, res.ExitCode)
	})

	t.Run("streams are kept apart", func(t *testing.T) {
		res, err := runner.Run(ctx, "sh", []string{"-c", "echo out; echo err >&2"}, Options{})
		require.NoError(t, err)
		assert.Equal(t, "out\n", res.Stdout)
		assert.Equal(t, "err\n", res.Stderr)
	})

	t.Run("command not found", func(t *testing.T) {
		_, err := runner.Run(ctx, "nonexistent-command-12345", nil, Options{})
		assert.Error(t, err)
	})

	t.Run("non-zero exit keeps output", func(t *testing.T) {
		res, err := runner.Run(ctx, "sh", []string{"-c", "echo partial; exit 3"}, Options{})
		var exitErr *ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 3, exitErr.Code)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "partial\n", res.Stdout)
	})

	t.Run("environment and tee", func(t *testing.T) {
		var live bytes.Buffer
		res, err := runner.Run(ctx, "sh", []string{"-c", "echo $QS_TEST"}, Options{
			Env:    map[string]string{"QS_TEST": "value"},
			Stdout: &live,
		})
		require.NoError(t, err)
		assert.Equal(t, "value\n", res.Stdout)
		assert.Equal(t, res.Stdout, live.String())
	})
}

func TestEnvList(t *testing.T) {
	assert.Equal(t, []string{"A=1", "B=2"}, envList(map[string]string{"B": "2", "A": "1"}))
}
