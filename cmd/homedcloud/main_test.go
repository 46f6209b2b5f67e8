package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunInvalidConfigPath(t *testing.T) {
	t.Setenv("HOMEDCLOUD_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with an invalid config path")
	}
}

func TestRunInvalidConfigValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: ""
logging:
  level: info
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("HOMEDCLOUD_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when the database path is empty")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("HOMEDCLOUD_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("HOMEDCLOUD_CONFIG", "/tmp/other.yaml")
	if got := getConfigPath(); got != "/tmp/other.yaml" {
		t.Errorf("getConfigPath() = %q, want /tmp/other.yaml", got)
	}
}
