package search

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// Config Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Limit != 10 {
		t.Errorf("expected limit 10, got %d", cfg.Limit)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", cfg.Timeout)
	}
	if cfg.GoogleURL != "https://www.google.com" {
		t.Errorf("unexpected endpoint %q", cfg.GoogleURL)
	}
	if !cfg.Headless {
		t.Error("expected headless by default")
	}
	if !cfg.HistoryEnabled {
		t.Error("expected history enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Limit = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero limit")
	}

	cfg = DefaultConfig()
	cfg.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero timeout")
	}

	cfg = DefaultConfig()
	cfg.GoogleURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("limit: 25\nlocale: de-DE\nheadless: false\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Limit != 25 {
		t.Errorf("expected limit 25, got %d", cfg.Limit)
	}
	if cfg.Locale != "de-DE" {
		t.Errorf("expected de-DE, got %q", cfg.Locale)
	}
	if cfg.Headless {
		t.Error("expected headless overridden to false")
	}
	// Untouched fields keep defaults.
	if cfg.GoogleURL != DefaultGoogleURL {
		t.Errorf("default endpoint lost: %q", cfg.GoogleURL)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"limit": 3}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Limit != 3 {
		t.Errorf("expected limit 3, got %d", cfg.Limit)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// =============================================================================
// Environment Tests
// =============================================================================

func TestLoadEnvironment(t *testing.T) {
	t.Setenv(EnvStorageDir, "/var/lib/serpdriver")
	t.Setenv(EnvBrowserBin, "/usr/bin/chromium")

	env := LoadEnvironment()
	if env.StorageDir != "/var/lib/serpdriver" {
		t.Errorf("unexpected storage dir %q", env.StorageDir)
	}
	if env.BrowserBin != "/usr/bin/chromium" {
		t.Errorf("unexpected browser bin %q", env.BrowserBin)
	}
}

func TestLoadEnvironment_Defaults(t *testing.T) {
	t.Setenv(EnvStorageDir, "")
	t.Setenv(EnvBrowserBin, "")

	env := LoadEnvironment()
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if env.StorageDir != filepath.Join(home, ".serpdriver") {
		t.Errorf("expected default under home, got %q", env.StorageDir)
	}
	if env.BrowserBin != "" {
		t.Errorf("expected empty browser bin, got %q", env.BrowserBin)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandHome("~/data"); got != filepath.Join(home, "data") {
		t.Errorf("expandHome(~/data) = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path must pass through, got %q", got)
	}
	if got := expandHome("relative"); got != "relative" {
		t.Errorf("relative path must pass through, got %q", got)
	}
}
