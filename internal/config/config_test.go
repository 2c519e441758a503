package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad(t *testing.T) {
	content := `
server:
  port: 9000
data:
  proteins_path: "/data/figs.sqlite"
  palette_path: "/data/colours.json"
session:
  window_start: 3
  window_end: 40
  clear_color_on_deselect: true
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Data.ProteinsPath != "/data/figs.sqlite" {
		t.Errorf("unexpected proteins_path: %s", cfg.Data.ProteinsPath)
	}
	if cfg.Data.PalettePath != "/data/colours.json" {
		t.Errorf("unexpected palette_path: %s", cfg.Data.PalettePath)
	}
	if cfg.Session.WindowStart != 3 || cfg.Session.WindowEnd != 40 {
		t.Errorf("unexpected window %d..%d", cfg.Session.WindowStart, cfg.Session.WindowEnd)
	}
	if !cfg.Session.ClearColorOnDeselect {
		t.Error("expected clear_color_on_deselect")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg := loadFromString(t, "server:\n  port: 9001\n")
	defaults := DefaultConfig()

	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Server.CORSOrigins, defaults.Server.CORSOrigins) {
		t.Errorf("expected default CORS origins, got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Session.WindowStart != 0 || cfg.Session.WindowEnd != 25 || cfg.Session.ScrollStep != 5 {
		t.Errorf("unexpected session defaults %+v", cfg.Session)
	}
	if cfg.Cache.FrameSizeMB != defaults.Cache.FrameSizeMB || cfg.Render.CellSize != defaults.Render.CellSize {
		t.Errorf("expected cache/render defaults, got %+v %+v", cfg.Cache, cfg.Render)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("expected default config, got error %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
