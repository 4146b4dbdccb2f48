package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPrintOutput(t *testing.T) {
	data := OperationResult{
		Success:    true,
		Connection: localConnection,
		Message:    "done",
		Items:      []string{"a.container", "b.pod"},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "json", data))

		var got OperationResult
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, data, got)
	})

	t.Run("yaml and yml", func(t *testing.T) {
		for _, format := range []string{"yaml", "yml", "YAML"} {
			var buf bytes.Buffer
			require.NoError(t, PrintOutput(&buf, format, data))

			var got OperationResult
			require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
			assert.Equal(t, data, got, format)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PrintOutput(&buf, "text", data))
		assert.Contains(t, buf.String(), "a.container")
	})

	t.Run("unsupported", func(t *testing.T) {
		err := PrintOutput(&bytes.Buffer{}, "xml", data)
		assert.ErrorContains(t, err, "unsupported output format")
	})
}

func TestValidateOutputFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml", "yml", "JSON"} {
		assert.NoError(t, validateOutputFormat(f), f)
	}
	assert.Error(t, validateOutputFormat("toml"))
}
