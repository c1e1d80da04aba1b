package search

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied by DefaultConfig.
const (
	DefaultLimit      = 10
	DefaultTimeout    = 60 * time.Second
	DefaultLocale     = "en-US"
	DefaultGoogleURL  = "https://www.google.com"
	DefaultStorageDir = "~/.serpdriver"
)

// Environment variables consulted once at startup.
const (
	EnvStorageDir = "SERPDRIVER_STORAGE_DIR"
	EnvBrowserBin = "SERPDRIVER_BROWSER_BIN"
)

// Config holds all search configuration.
type Config struct {
	// Maximum results per query
	Limit int `json:"limit" yaml:"limit"`

	// Overall timeout for one search run
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Locale presented to the site; empty means host locale or en-US
	Locale string `json:"locale" yaml:"locale"`

	// Google endpoint, overridable for regional domains
	GoogleURL string `json:"google_url" yaml:"google_url"`

	// Run the browser headless; recovery may still relaunch visible
	Headless bool `json:"headless" yaml:"headless"`

	// Debug keeps windows open after the run and raises log verbosity
	Debug bool `json:"debug" yaml:"debug"`

	// Skip persisting session state after the run
	NoSaveState bool `json:"no_save_state" yaml:"no_save_state"`

	// State file path; the fingerprint sidecar derives from it
	StatePath string `json:"state_path" yaml:"state_path"`

	// Chrome binary override
	BrowserBin string `json:"browser_bin" yaml:"browser_bin"`

	// Record completed runs in the history database
	HistoryEnabled bool `json:"history_enabled" yaml:"history_enabled"`

	// Minimum delay between query starts in multi-query runs
	StaggerInterval time.Duration `json:"stagger_interval" yaml:"stagger_interval"`

	// Log level: debug, info, warn, error
	LogLevel string `json:"log_level" yaml:"log_level"`
}

// Environment holds host-level settings resolved from environment
// variables. Resolved once so every component sees the same values.
type Environment struct {
	StorageDir string
	BrowserBin string
}

// LoadEnvironment reads the process environment and expands "~" in the
// storage directory.
func LoadEnvironment() Environment {
	env := Environment{
		StorageDir: expandHome(DefaultStorageDir),
	}

	if dir := os.Getenv(EnvStorageDir); dir != "" {
		env.StorageDir = expandHome(dir)
	}
	if bin := os.Getenv(EnvBrowserBin); bin != "" {
		env.BrowserBin = bin
	}
	return env
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Limit:           DefaultLimit,
		Timeout:         DefaultTimeout,
		Locale:          "",
		GoogleURL:       DefaultGoogleURL,
		Headless:        true,
		HistoryEnabled:  true,
		StaggerInterval: 2 * time.Second,
		LogLevel:        "info",
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Limit < 1 {
		return fmt.Errorf("limit must be at least 1")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.GoogleURL == "" {
		return fmt.Errorf("google URL is required")
	}
	return nil
}
