// Package config loads loom configuration from a YAML file with environment
// overrides. Missing files yield defaults, so a bare checkout works without
// any setup beyond an API key.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultDBName is the database file discovered by walking up from the
// working directory.
const DefaultDBName = ".loom.db"

// Config is the full loom configuration.
type Config struct {
	// Database is the graph database path. Empty means discover.
	Database string `yaml:"database"`

	// RulesPath overrides the embedded validation rule table.
	RulesPath string `yaml:"rules_path"`

	Producer ProducerConfig `yaml:"producer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProducerConfig configures diff generation.
type ProducerConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// MaxRetries is the regeneration budget after a rejected batch.
	MaxRetries int `yaml:"max_retries"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`       // debug, info, warn, error
	Development bool   `yaml:"development"` // human-readable console output
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Producer: ProducerConfig{
			Model:      "gemini-2.5-flash",
			MaxRetries: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// DefaultPath returns the conventional config location.
func DefaultPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "loom", "config.yaml")
	}
	return "loom.yaml"
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Producer.APIKey = key
	}
	if model := os.Getenv("LOOM_MODEL"); model != "" {
		c.Producer.Model = model
	}
	if path := os.Getenv("LOOM_DB"); path != "" {
		c.Database = path
	}
	if path := os.Getenv("LOOM_RULES"); path != "" {
		c.RulesPath = path
	}
	if level := os.Getenv("LOOM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if v := os.Getenv("LOOM_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Producer.MaxRetries = n
		}
	}
}

// DiscoverDB finds the database path using priority: config > walk-up from
// the working directory > home fallback. The walk-up matches git's directory
// convention.
func (c *Config) DiscoverDB() (string, error) {
	if c.Database != "" {
		return c.Database, nil
	}

	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, DefaultDBName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		fallback := filepath.Join(home, ".local", "share", "loom", "loom.db")
		if _, err := os.Stat(fallback); err == nil {
			return fallback, nil
		}
	}

	return "", fmt.Errorf("no %s found (set LOOM_DB, use --db, or run from a directory containing %s)", DefaultDBName, DefaultDBName)
}
