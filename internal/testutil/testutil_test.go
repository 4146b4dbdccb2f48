package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-sync/internal/config"
)

func TestNewTestLogger(t *testing.T) {
	logger := NewTestLogger(t)
	assert.NotNil(t, logger)

	logger.Debug("test debug message", "key", "value")
	logger.Info("test info message")
	logger.With("connection", "podman/local").Warn("test warn message")
	logger.Error("test error message")
}

func TestNewMockConfig(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		provider := NewMockConfig(t)
		require.NotNil(t, provider)

		cfg := provider.GetConfig()
		require.NotNil(t, cfg)
		assert.True(t, cfg.Verbose)
		assert.Equal(t, config.DefaultUserQuadletDir, cfg.UserQuadletDir)
	})

	t.Run("with options", func(t *testing.T) {
		provider := NewMockConfig(t,
			WithUserQuadletDir("/tmp/user"),
			WithAdminQuadletDir("/tmp/admin"),
			WithConnections(config.Connection{Provider: "podman", Name: "vm", Kind: config.ConnectionKindSSH, URI: "ssh://core@host"}),
		)

		cfg := provider.GetConfig()
		assert.Equal(t, "/tmp/user", cfg.UserQuadletDir)
		assert.Equal(t, "/tmp/admin", cfg.AdminQuadletDir)
		require.Len(t, cfg.Connections, 1)
		assert.Equal(t, "vm", cfg.Connections[0].Name)
	})
}
