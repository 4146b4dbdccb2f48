// Package config provides configuration management for quadlet-sync
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Provider defines the interface for configuration providers.
type Provider interface {
	// GetConfig returns the current application configuration.
	GetConfig() *Settings
	// SetConfig sets the application configuration.
	SetConfig(c *Settings)
	// InitConfig loads the application configuration from defaults, files and environment.
	InitConfig() (*Settings, error)
	// SetConfigFilePath sets the configuration file path.
	SetConfigFilePath(p string)
	// ConfigFileUsed reports the file that was loaded, empty when running on defaults.
	ConfigFileUsed() string
}

// defaultConfigProvider implements the Provider interface on top of a private viper instance.
type defaultConfigProvider struct {
	v        *viper.Viper
	cfg      *Settings
	filePath string
}

// NewDefaultConfigProvider creates a new default config provider.
func NewDefaultConfigProvider() Provider {
	return &defaultConfigProvider{v: viper.New()}
}

// Default configuration values for quadlet-sync.
const (
	DefaultUserQuadletDir      = "~/.config/containers/systemd"
	DefaultAdminQuadletDir     = "/etc/containers/systemd"
	DefaultGeneratorFallback   = "/usr/libexec/podman/quadlet"
	DefaultReconnectDelay      = 5 * time.Second
	DefaultDialTimeout         = 15 * time.Second
	DefaultWatchInterval       = 1 * time.Minute
	DefaultDiscoverConnections = false
	DefaultVerbose             = false
	DefaultLogFormat           = "text"

	// ConnectionKindNative marks a connection served by local processes and files.
	ConnectionKindNative = "native"
	// ConnectionKindSSH marks a connection reachable only over SSH.
	ConnectionKindSSH = "ssh"
)

// Connection describes one container-engine connection quadlet-sync should manage.
type Connection struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	// Kind is "native" or "ssh".
	Kind string `yaml:"kind"`
	// URI is an ssh://user@host:port URI, required when Kind is ssh.
	URI        string `yaml:"uri,omitempty"`
	Identity   string `yaml:"identity,omitempty"`
	KnownHosts string `yaml:"knownHosts,omitempty"`
	// InsecureHostKey skips host key verification, as podman does for its own machines.
	InsecureHostKey bool `yaml:"insecureHostKey,omitempty"`
	Rootful    bool   `yaml:"rootful,omitempty"`
	Disabled   bool   `yaml:"disabled,omitempty"`
}

// Settings represents the configuration for quadlet-sync.
type Settings struct {
	Connections         []Connection  `yaml:"connections"`
	DiscoverConnections bool          `yaml:"discoverConnections"`
	UserQuadletDir      string        `yaml:"userQuadletDir"`
	AdminQuadletDir     string        `yaml:"adminQuadletDir"`
	GeneratorFallback   string        `yaml:"generatorFallback"`
	ReconnectDelay      time.Duration `yaml:"reconnectDelay"`
	DialTimeout         time.Duration `yaml:"dialTimeout"`
	WatchInterval       time.Duration `yaml:"watchInterval"`
	Verbose             bool          `yaml:"verbose"`
	LogFormat           string        `yaml:"logFormat"`
}

// DefaultSettings returns the settings used when no configuration file is present.
func DefaultSettings() *Settings {
	return &Settings{
		Connections: []Connection{
			{Provider: "podman", Name: "local", Kind: ConnectionKindNative},
		},
		DiscoverConnections: DefaultDiscoverConnections,
		UserQuadletDir:      DefaultUserQuadletDir,
		AdminQuadletDir:     DefaultAdminQuadletDir,
		GeneratorFallback:   DefaultGeneratorFallback,
		ReconnectDelay:      DefaultReconnectDelay,
		DialTimeout:         DefaultDialTimeout,
		WatchInterval:       DefaultWatchInterval,
		Verbose:             DefaultVerbose,
		LogFormat:           DefaultLogFormat,
	}
}

// Validate checks settings for values that cannot work at runtime.
func (s *Settings) Validate() error {
	seen := make(map[string]struct{}, len(s.Connections))
	for i, c := range s.Connections {
		if c.Provider == "" || c.Name == "" {
			return fmt.Errorf("connection %d: provider and name are required", i)
		}
		key := c.Provider + "/" + c.Name
		if _, dup := seen[key]; dup {
			return fmt.Errorf("connection %s is declared twice", key)
		}
		seen[key] = struct{}{}

		switch c.Kind {
		case "", ConnectionKindNative:
		case ConnectionKindSSH:
			if c.URI == "" {
				return fmt.Errorf("connection %s: ssh connections need a uri", key)
			}
		default:
			return fmt.Errorf("connection %s: unknown kind %q", key, c.Kind)
		}
	}
	if s.ReconnectDelay <= 0 {
		return errors.New("reconnectDelay must be positive")
	}
	return nil
}

func (p *defaultConfigProvider) SetConfig(c *Settings) {
	p.cfg = c
}

func (p *defaultConfigProvider) GetConfig() *Settings {
	return p.cfg
}

func (p *defaultConfigProvider) SetConfigFilePath(path string) {
	p.filePath = path
}

func (p *defaultConfigProvider) InitConfig() (*Settings, error) {
	cfg := DefaultSettings()
	defaultConnections := cfg.Connections
	cfg.Connections = nil
	v := p.v

	v.SetDefault("discoverConnections", cfg.DiscoverConnections)
	v.SetDefault("userQuadletDir", cfg.UserQuadletDir)
	v.SetDefault("adminQuadletDir", cfg.AdminQuadletDir)
	v.SetDefault("generatorFallback", cfg.GeneratorFallback)
	v.SetDefault("reconnectDelay", cfg.ReconnectDelay)
	v.SetDefault("dialTimeout", cfg.DialTimeout)
	v.SetDefault("watchInterval", cfg.WatchInterval)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("logFormat", cfg.LogFormat)

	v.SetConfigType("yaml")
	if p.filePath != "" {
		// SetConfigName clears an explicit file, so search paths are only set up without one.
		v.SetConfigFile(p.filePath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(os.ExpandEnv("$HOME/.config/quadlet-sync"))
		v.AddConfigPath("/etc/opt/quadlet-sync")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("QUADLET_SYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || p.filePath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Connections) == 0 {
		cfg.Connections = defaultConnections
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	p.cfg = cfg
	return cfg, nil
}

// ConfigFileUsed reports the file viper loaded, if any.
func (p *defaultConfigProvider) ConfigFileUsed() string {
	return p.v.ConfigFileUsed()
}
