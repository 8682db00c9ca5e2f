package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, exists, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for empty root")
	}
	if cfg.Storage.Backend != "dir" || cfg.PruneDays != 30 || cfg.Theme != "light" {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
	if _, err := os.Stat(filepath.Join(root, YAMLFile)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("load must not create a config file")
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	if err := cfg.Set("storage.backend", "sqlite"); err != nil {
		t.Fatalf("set backend: %v", err)
	}
	if err := cfg.Set("storage.quota", "4096"); err != nil {
		t.Fatalf("set quota: %v", err)
	}
	cfg.Storage.Path = ""
	if err := Save(root, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, exists, err := Load(root)
	if err != nil || !exists {
		t.Fatalf("load: exists=%v err=%v", exists, err)
	}
	if got.Storage.Backend != "sqlite" || got.Storage.Quota != 4096 {
		t.Fatalf("unexpected storage: %#v", got.Storage)
	}
	if got.Storage.Path != "agenda.db" {
		t.Fatalf("expected sqlite default path, got %q", got.Storage.Path)
	}
	if got.StoragePath(root) != filepath.Join(root, "agenda.db") {
		t.Fatalf("unexpected resolved path %q", got.StoragePath(root))
	}
}

func TestLoadTOML(t *testing.T) {
	root := t.TempDir()
	content := "theme = \"dark\"\nprune_days = 14\n\n[storage]\nbackend = \"memory\"\n\n[log]\nlevel = \"debug\"\n"
	if err := os.WriteFile(filepath.Join(root, TOMLFile), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, exists, err := Load(root)
	if err != nil || !exists {
		t.Fatalf("load: exists=%v err=%v", exists, err)
	}
	if cfg.Theme != "dark" || cfg.PruneDays != 14 || cfg.Storage.Backend != "memory" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
	cfg.Filter = "active"
	if err := Save(root, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, YAMLFile)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("save should keep the TOML file, not create YAML")
	}
	again, _, err := Load(root)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Filter != "active" {
		t.Fatalf("expected filter active, got %q", again.Filter)
	}
}

func TestSetRejectsBadValues(t *testing.T) {
	cfg := Default()
	tests := []struct{ key, value string }{
		{"storage.backend", "tape"},
		{"storage.quota", "-1"},
		{"prune_days", "0"},
		{"theme", "neon"},
		{"log.timestamps", "maybe"},
	}
	for _, tc := range tests {
		if err := cfg.Set(tc.key, tc.value); err == nil {
			t.Errorf("Set(%q, %q) should fail", tc.key, tc.value)
		}
	}
	if err := cfg.Set("colour", "x"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestSaveAsTOMLIsPreferredOnLoad(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Theme = "dark"
	if err := SaveAs(root, TOMLFile, cfg); err != nil {
		t.Fatalf("save toml: %v", err)
	}
	if Path(root) != filepath.Join(root, TOMLFile) {
		t.Fatalf("expected toml path, got %s", Path(root))
	}
	got, _, err := Load(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Theme != "dark" {
		t.Fatalf("expected dark theme, got %q", got.Theme)
	}
	if err := SaveAs(root, "config.json", cfg); err == nil {
		t.Fatalf("expected error for unsupported file")
	}
}
