// Package config provides configuration management for budgetmirror.
//
// The config file holds settings only. Everything the mirror knows lives in
// the database and the response cache, both of which can be wiped without
// touching the config.
//
// Config file locations (priority order):
//  1. $BUDGETMIRROR_CONFIG
//  2. ./budgetmirror.yaml
//  3. $XDG_CONFIG_HOME/budgetmirror/config.yaml
//  4. ~/.config/budgetmirror/config.yaml
//  5. /etc/budgetmirror/config.yaml
//
// The API token may be kept out of the file: $YNAB_TOKEN overrides api.token
// when the config is loaded.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvToken overrides api.token at load time
const EnvToken = "YNAB_TOKEN"

var (
	// ErrMissingToken is returned by Validate when no API token is configured
	ErrMissingToken = errors.New("no API token configured (set api.token or $" + EnvToken + ")")
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		cfg := DefaultConfig()
		cfg.applyEnv()
		return cfg, "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	return cfg, path, nil
}

// Save writes config to the specified path. The token is written only if
// it came from the file in the first place.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	out := *c
	if c.tokenFromEnv {
		out.API.Token = ""
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		API: APIConfig{
			BaseURL: "https://api.ynab.com/v1",
			Timeout: Duration(30 * time.Second),
		},
		Database: DatabaseConfig{Path: "./budgetmirror.db"},
		Cache: CacheConfig{
			Path:    "./budgetmirror-cache.json",
			Refresh: Duration(time.Hour),
			MaxAge:  Duration(24 * time.Hour),
		},
		Log: LogConfig{Level: "info"},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = defaults.API.BaseURL
	}
	if c.Database.Path == "" {
		c.Database.Path = defaults.Database.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// applyEnv lets the environment supply the token
func (c *Config) applyEnv() {
	if token := os.Getenv(EnvToken); token != "" {
		c.API.Token = token
		c.tokenFromEnv = true
	}
}

// Validate reports settings the gateway cannot run with
func (c *Config) Validate() error {
	if c.API.Token == "" {
		return ErrMissingToken
	}
	if c.Cache.Refresh.Duration() <= 0 {
		return fmt.Errorf("cache.refresh must be positive, got %s", c.Cache.Refresh.Duration())
	}
	if c.Cache.MaxAge.Duration() < 0 {
		return fmt.Errorf("cache.max_age must not be negative, got %s", c.Cache.MaxAge.Duration())
	}
	if c.API.Timeout.Duration() < 0 {
		return fmt.Errorf("api.timeout must not be negative, got %s", c.API.Timeout.Duration())
	}
	return nil
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	out := *c
	if out.API.Token != "" {
		out.API.Token = "********"
	}
	return &out
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("API: %s (timeout %s)\n", c.API.BaseURL, c.API.Timeout.Duration())
	summary += fmt.Sprintf("Database: %s\n", c.Database.Path)
	summary += fmt.Sprintf("Cache: %s (refresh %s, max age %s)\n",
		c.Cache.Path, c.Cache.Refresh.Duration(), c.Cache.MaxAge.Duration())
	summary += fmt.Sprintf("Incremental sync: %t", c.Sync.Incremental)
	return summary
}
