package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`

	tokenFromEnv bool
}

// APIConfig holds remote service settings
type APIConfig struct {
	BaseURL string   `yaml:"base_url"`
	Token   string   `yaml:"token,omitempty"`
	Timeout Duration `yaml:"timeout"` // 0 = no timeout
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds response cache settings
type CacheConfig struct {
	Path         string   `yaml:"path"` // "" = memory only
	Refresh      Duration `yaml:"refresh"`
	MaxAge       Duration `yaml:"max_age"` // 0 = keep entries forever
	ForceRefresh bool     `yaml:"force_refresh"`
}

// SyncConfig holds reconciliation settings
type SyncConfig struct {
	Incremental bool `yaml:"incremental"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
