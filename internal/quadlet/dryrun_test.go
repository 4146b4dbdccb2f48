package quadlet

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/testutil"
)

func block(service, sourcePath string) string {
	return fmt.Sprintf("---%s---\n[Unit]\nSourcePath=%s\n\n[Service]\nExecStart=/usr/bin/true\n", service, sourcePath)
}

func TestParseDryRun(t *testing.T) {
	logger := testutil.NewTestLogger(t)

	t.Run("every stdout block is a valid entry", func(t *testing.T) {
		for _, n := range []int{0, 1, 3, 10} {
			var stdout strings.Builder
			for i := 0; i < n; i++ {
				stdout.WriteString(block(fmt.Sprintf("app%d.service", i), fmt.Sprintf("/q/app%d.container", i)))
			}

			got := ParseDryRun(DryRunOutput{Stdout: stdout.String()}, logger)
			require.Len(t, got, n)
			for i, q := range got {
				assert.Equal(t, fmt.Sprintf("/q/app%d.container", i), q.Path)
				assert.Equal(t, StateUnknown, q.State)
				assert.Equal(t, fmt.Sprintf("app%d.service", i), q.Service)
			}
		}
	})

	t.Run("block content excludes the delimiter", func(t *testing.T) {
		got := ParseDryRun(DryRunOutput{Stdout: block("a.service", "/q/a.container") + block("b.service", "/q/b.volume")}, logger)
		require.Len(t, got, 2)
		assert.True(t, strings.HasPrefix(got[0].Content, "[Unit]"))
		assert.NotContains(t, got[0].Content, "---")
		assert.Equal(t, TypeVolume, got[1].Type)
	})

	t.Run("stderr only unit becomes an error entry", func(t *testing.T) {
		stderr := "quadlet-generator[12]: Loading source unit file /a/b/c.image\n" +
			"quadlet-generator[12]: converting \"c.image\": unsupported key 'Foo'\n"

		got := ParseDryRun(DryRunOutput{Stderr: stderr}, logger)
		require.Len(t, got, 1)
		assert.Equal(t, "/a/b/c.image", got[0].Path)
		assert.Equal(t, TypeImage, got[0].Type)
		assert.Equal(t, StateError, got[0].State)
		assert.Empty(t, got[0].Service)
		assert.False(t, got[0].HasService())
		assert.Equal(t, []string{}, got[0].Requires)
		assert.NotEmpty(t, got[0].ID)
	})

	t.Run("parenthesised path", func(t *testing.T) {
		got := ParseDryRun(DryRunOutput{Stderr: "Loading source unit file (/a/b/web@.container)\n"}, logger)
		require.Len(t, got, 1)
		assert.Equal(t, "/a/b/web@.container", got[0].Path)
		assert.Equal(t, KindTemplate, got[0].Kind)
		assert.Equal(t, "web", got[0].Template)
	})

	t.Run("stdout wins on collision", func(t *testing.T) {
		out := DryRunOutput{
			Stdout: block("web.service", "/q/web.container"),
			Stderr: "Loading source unit file /q/web.container\nLoading source unit file /q/web.container\nLoading source unit file /q/broken.pod\n",
		}

		got := ParseDryRun(out, logger)
		require.Len(t, got, 2)
		assert.Equal(t, "/q/web.container", got[0].Path)
		assert.Equal(t, StateUnknown, got[0].State)
		assert.Equal(t, "web.service", got[0].Service)
		assert.Equal(t, "/q/broken.pod", got[1].Path)
		assert.Equal(t, StateError, got[1].State)
	})

	t.Run("unparseable block is isolated", func(t *testing.T) {
		out := DryRunOutput{
			Stdout: "---bad.service---\n[Unit]\nDescription=no source\n" + block("ok.service", "/q/ok.network"),
			Stderr: "Loading source unit file /q/bad.container\nLoading source unit file /q/notes.txt\n",
		}

		got := ParseDryRun(out, logger)
		require.Len(t, got, 2)
		assert.Equal(t, "/q/ok.network", got[0].Path)
		assert.Equal(t, "/q/bad.container", got[1].Path)
		assert.Equal(t, StateError, got[1].State)
	})

	t.Run("ids are fresh per call", func(t *testing.T) {
		out := DryRunOutput{Stdout: block("a.service", "/q/a.container")}
		first := ParseDryRun(out, nil)
		second := ParseDryRun(out, nil)
		require.Len(t, first, 1)
		require.Len(t, second, 1)
		assert.NotEqual(t, first[0].ID, second[0].ID)
	})
}

func TestLoadedSourcePaths(t *testing.T) {
	stderr := strings.Join([]string{
		"Loading source unit file /etc/containers/systemd/a.container",
		"something else",
		"Loading source unit file (/etc/containers/systemd/b.kube)",
		"Loading source unit file /etc/containers/systemd/a.container",
	}, "\n")

	assert.Equal(t, []string{
		"/etc/containers/systemd/a.container",
		"/etc/containers/systemd/b.kube",
	}, LoadedSourcePaths(stderr))
	assert.Empty(t, LoadedSourcePaths(""))
}

func TestLoadedSourcePaths_Spaces(t *testing.T) {
	stderr := strings.Join([]string{
		"quadlet-generator[42]: Loading source unit file (/home/u/my app/web.container)",
		"Loading source unit file /home/u/my app/db.container  \r",
	}, "\n")

	assert.Equal(t, []string{
		"/home/u/my app/web.container",
		"/home/u/my app/db.container",
	}, LoadedSourcePaths(stderr))
}

func TestParseDryRun_FailedUnitWithSpaceInPath(t *testing.T) {
	out := DryRunOutput{Stderr: "quadlet-generator[1]: Loading source unit file (/home/u/my app/web.container)\n"}

	qs := ParseDryRun(out, nil)
	require.Len(t, qs, 1)
	assert.Equal(t, "/home/u/my app/web.container", qs[0].Path)
	assert.Equal(t, StateError, qs[0].State)
	assert.Equal(t, TypeContainer, qs[0].Type)
	assert.False(t, qs[0].HasService())
}
