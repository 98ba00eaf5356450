package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ahumphreys/spindle/internal/shared"
)

func TestNewRunner(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if runner.config == nil {
			t.Error("expected default config")
		}
		if runner.logger == nil {
			t.Error("expected default logger")
		}
		if runner.output == nil {
			t.Error("expected default output")
		}
	})

	t.Run("Provided Options", func(t *testing.T) {
		var buf bytes.Buffer
		config := shared.DefaultConfig()
		config.Server.Port = 9999

		runner := NewRunner(RunnerOpts{Config: config, Output: &buf})

		if runner.config.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", runner.config.Server.Port)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("Empty Path Uses Runner Config", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if got := runner.loadConfig(""); got != runner.config {
			t.Error("empty path should return the runner's config")
		}
	})

	t.Run("Missing File Uses Runner Config", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		if got := runner.loadConfig(filepath.Join(t.TempDir(), "nope.toml")); got != runner.config {
			t.Error("missing file should fall back to the runner's config")
		}
	})

	t.Run("Existing File Wins", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		content := "[server]\nport = 8080\n"
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		runner := NewRunner(RunnerOpts{})
		config := runner.loadConfig(configPath)

		if config.Server.Port != 8080 {
			t.Errorf("expected port 8080 from file, got %d", config.Server.Port)
		}
	})
}

func TestWritePlain(t *testing.T) {
	var buf bytes.Buffer
	runner := NewRunner(RunnerOpts{Output: &buf})

	if err := runner.writePlain("hello %s", "world"); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if buf.String() != "hello world" {
		t.Errorf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	if err := runner.writePlainln("count=%d", 3); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
	if buf.String() != "count=3\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
