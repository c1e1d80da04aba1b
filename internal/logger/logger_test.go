package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cfg := DefaultConfig()
	l := New(cfg)

	if l == nil {
		t.Fatal("New() returned nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != InfoLevel {
		t.Errorf("Level = %v, want InfoLevel", cfg.Level)
	}
	if !cfg.Pretty {
		t.Error("Pretty should be true by default")
	}
	if cfg.Output == nil {
		t.Error("Output should not be nil")
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Level:  InfoLevel,
		Pretty: false,
		Output: &buf,
	})

	l = l.WithComponent("session")
	l.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "session") {
		t.Errorf("Output should contain component: %s", output)
	}
}

func TestLogger_WithQuery(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Level:  InfoLevel,
		Pretty: false,
		Output: &buf,
	})

	l = l.WithQuery("golang testing")
	l.Info("searching")

	output := buf.String()
	if !strings.Contains(output, "golang testing") {
		t.Errorf("Output should contain query: %s", output)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Level:  WarnLevel,
		Pretty: false,
		Output: &buf,
	})

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered at warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be logged")
	}
}

func TestLogger_CaptchaEvent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{
		Level:  InfoLevel,
		Pretty: false,
		Output: &buf,
	})

	l.CaptchaEvent("https://www.google.com/sorry/index", true, 2)

	output := buf.String()
	if !strings.Contains(output, "sorry/index") {
		t.Errorf("Output should contain the challenge URL: %s", output)
	}
	if !strings.Contains(output, "attempt") {
		t.Errorf("Output should contain the attempt field: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	if err != nil {
		t.Fatalf("ParseLevel failed: %v", err)
	}
	if level != DebugLevel {
		t.Errorf("level = %v, want DebugLevel", level)
	}

	_, err = ParseLevel("not-a-level")
	if err == nil {
		t.Error("ParseLevel should fail for invalid input")
	}
}
