// Package wizconfig holds the three persisted-state layers the engine reads
// at startup: the ambient process config (YAML), the server config
// (wizard.json), and the plain KEY=VALUE environment file. It also watches
// the latter two for changes so C7/C8 can react without a restart.
package wizconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the ambient process config: workspace layout, bind address,
// logging defaults, and the few dispatch tunables the engine exposes
// outside of the command catalog itself.
type Config struct {
	Workspace string `yaml:"workspace"`

	HTTP struct {
		BindHost string `yaml:"bind_host"`
		BindPort int    `yaml:"bind_port"`
	} `yaml:"http"`

	Logging struct {
		Level      string          `yaml:"level"`
		DebugMode  bool            `yaml:"debug_mode"`
		Categories map[string]bool `yaml:"categories"`
	} `yaml:"logging"`

	ConfirmationTTLSeconds int     `yaml:"confirmation_ttl_seconds"`
	FuzzyMatchFloor        float64 `yaml:"fuzzy_match_floor"`
}

// DefaultConfig mirrors the defaulting pattern used throughout this stack:
// every field has a sane built-in value, and Load only overrides what's
// present on disk.
func DefaultConfig() *Config {
	c := &Config{Workspace: "."}
	c.HTTP.BindHost = "127.0.0.1"
	c.HTTP.BindPort = 8733
	c.Logging.Level = "info"
	c.Logging.DebugMode = false
	c.ConfirmationTTLSeconds = 300
	c.FuzzyMatchFloor = 0.8
	return c
}

// Load reads path and overlays it onto DefaultConfig. A missing file is not
// an error — it just means the caller runs on defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes c to path as YAML, creating the parent directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
