// Package testutil provides common test utilities and helpers to reduce boilerplate in test files.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/trly/quadlet-sync/internal/config"
	"github.com/trly/quadlet-sync/internal/log"
)

// NewTestLogger creates a logger that writes to t.Logf for testing.
// This ensures test output is properly captured by the test framework.
func NewTestLogger(t testing.TB) log.Logger {
	handler := &testHandler{t: t}
	return log.NewSlogAdapter(slog.New(handler))
}

// ConfigOption allows customization of test config settings.
type ConfigOption func(*config.Settings)

// WithUserQuadletDir sets the user quadlet directory.
func WithUserQuadletDir(dir string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.UserQuadletDir = dir
	}
}

// WithAdminQuadletDir sets the admin quadlet directory.
func WithAdminQuadletDir(dir string) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.AdminQuadletDir = dir
	}
}

// WithConnections replaces the configured connections.
func WithConnections(conns ...config.Connection) ConfigOption {
	return func(cfg *config.Settings) {
		cfg.Connections = conns
	}
}

// NewMockConfig creates a config provider for testing with optional customizations.
func NewMockConfig(t testing.TB, opts ...ConfigOption) config.Provider {
	t.Helper()

	cfg := config.DefaultSettings()
	cfg.Verbose = true
	for _, opt := range opts {
		opt(cfg)
	}

	provider := config.NewDefaultConfigProvider()
	provider.SetConfig(cfg)
	return provider
}

// testHandler implements slog.Handler to write to testing.TB.
type testHandler struct {
	t     testing.TB
	attrs []slog.Attr
}

func (h *testHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *testHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	for _, a := range h.attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
	}
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	h.t.Logf("[%s] %s%s", record.Level.String(), record.Message, b.String())
	return nil
}

func (h *testHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &testHandler{t: h.t, attrs: merged}
}

func (h *testHandler) WithGroup(_ string) slog.Handler {
	return h
}
