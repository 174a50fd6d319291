package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/config"
)

func TestDefaultMatchesDocumentedLimits(t *testing.T) {
	cfg := config.Default()

	if cfg.Limits.MaxComponents != 64 {
		t.Fatalf("MaxComponents: want 64, got %d", cfg.Limits.MaxComponents)
	}
	if cfg.Limits.MaxUsers != 128 {
		t.Fatalf("MaxUsers: want 128, got %d", cfg.Limits.MaxUsers)
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "neonucleus.toml")

	body := "[Limits]\nMaxComponents = 8\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Limits.MaxComponents != 8 {
		t.Fatalf("MaxComponents: want 8, got %d", cfg.Limits.MaxComponents)
	}

	def := config.DefaultLimits()
	if cfg.Limits.MaxUsers != def.MaxUsers {
		t.Fatalf("MaxUsers: want untouched default %d, got %d", def.MaxUsers, cfg.Limits.MaxUsers)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("Load of missing file: want error, got nil")
	}
}

func TestComputerOptionsNonEmpty(t *testing.T) {
	opts := config.DefaultLimits().ComputerOptions()
	if len(opts) == 0 {
		t.Fatalf("ComputerOptions: want non-empty slice")
	}
}
