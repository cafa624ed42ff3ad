package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for explicit config path
	EnvConfigPath = "BUDGETMIRROR_CONFIG"
	// ConfigFileName is the default config file name
	ConfigFileName = "budgetmirror.yaml"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "budgetmirror"
)

// candidatePaths lists every config location in priority order:
// 1. $BUDGETMIRROR_CONFIG (explicit path)
// 2. ./budgetmirror.yaml (working directory)
// 3. $XDG_CONFIG_HOME/budgetmirror/config.yaml
// 4. ~/.config/budgetmirror/config.yaml
// 5. /etc/budgetmirror/config.yaml
func candidatePaths() []string {
	var paths []string

	if path := os.Getenv(EnvConfigPath); path != "" {
		paths = append(paths, path)
	}

	local := ConfigFileName
	if abs, err := filepath.Abs(local); err == nil {
		local = abs
	}
	paths = append(paths, local)

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, ConfigDirName, "config.yaml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", ConfigDirName, "config.yaml"))
	}

	return append(paths, filepath.Join("/etc", ConfigDirName, "config.yaml"))
}

// FindConfigPath returns the first existing candidate, or "" when there is
// none. A missing $BUDGETMIRROR_CONFIG file falls through to the others.
func FindConfigPath() string {
	for _, path := range candidatePaths() {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
// Prefers XDG config home, falls back to working directory
func DefaultConfigPath() string {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName, "config.yaml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName, "config.yaml")
	}
	return ConfigFileName
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
