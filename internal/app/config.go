package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/simaofelgueirasJM/flipper/internal/network"
	"github.com/simaofelgueirasJM/flipper/internal/server"
	"github.com/simaofelgueirasJM/flipper/internal/store"
	"github.com/simaofelgueirasJM/flipper/internal/webclient"
)

// Config is the runtime configuration. Every section maps onto the Config
// of the package that consumes it.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// StorageRoot is where captures are kept when store.storage_path is empty.
	StorageRoot string `yaml:"storage_root"`

	Server    server.Config    `yaml:"server"`
	Store     store.Config     `yaml:"store"`
	Capture   network.Config   `yaml:"capture"`
	WebClient webclient.Config `yaml:"webclient"`
	Overlay   OverlayConfig    `yaml:"overlay"`
}

type OverlayConfig struct {
	// Density scales overlay rendering when a request does not set one.
	Density float64 `yaml:"density"`
}

// DefaultConfig returns a Config populated with sensible development defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		StorageRoot: "~/.config/flipper",
		Server:      server.DefaultConfig(),
		WebClient: webclient.Config{
			Timeout:   30 * time.Second,
			UserAgent: "flipper/1",
		},
		Overlay: OverlayConfig{Density: 1},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values no component could run with.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}
	if strings.TrimSpace(c.StorageRoot) == "" && strings.TrimSpace(c.Store.StoragePath) == "" {
		return fmt.Errorf("storage_root is required")
	}
	if c.Store.MaxBodyBytes < 0 {
		return fmt.Errorf("store.max_body_bytes must not be negative")
	}
	if c.Capture.MaxCaptureBytes < 0 {
		return fmt.Errorf("capture.max_capture_bytes must not be negative")
	}
	if c.WebClient.Timeout < 0 {
		return fmt.Errorf("webclient.timeout must not be negative")
	}
	if c.Overlay.Density < 0 {
		return fmt.Errorf("overlay.density must not be negative")
	}
	return nil
}

// storagePath resolves where the capture store lives.
func (c *Config) storagePath() (string, error) {
	p := c.Store.StoragePath
	if strings.TrimSpace(p) == "" {
		p = c.StorageRoot
	}
	return expandHome(p)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
