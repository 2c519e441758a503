// Package config handles configuration loading for the figmap server.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Data    DataConfig    `yaml:"data"`
	Cache   CacheConfig   `yaml:"cache"`
	Render  RenderConfig  `yaml:"render"`
	Session SessionConfig `yaml:"session"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// DataConfig contains data source settings.
type DataConfig struct {
	// ProteinsPath is a .json, .json.zst or .sqlite dataset.
	ProteinsPath  string `yaml:"proteins_path"`
	PalettePath   string `yaml:"palette_path"`
	HierarchyPath string `yaml:"hierarchy_path"`
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	FrameSizeMB     int `yaml:"frame_size_mb"`
	FrameTTLMinutes int `yaml:"frame_ttl_minutes"`
	QueryCacheSize  int `yaml:"query_cache_size"`
}

// RenderConfig contains rendering settings.
type RenderConfig struct {
	CellSize int `yaml:"cell_size"`
}

// SessionConfig contains the initial browsing state of new sessions.
type SessionConfig struct {
	WindowStart          int  `yaml:"window_start"`
	WindowEnd            int  `yaml:"window_end"`
	ScrollStep           int  `yaml:"scroll_step"`
	ClearColorOnDeselect bool `yaml:"clear_color_on_deselect"`
	MaxSessions          int  `yaml:"max_sessions"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "figmap",
		},
		Data: DataConfig{
			ProteinsPath: "./data/proteins.json",
		},
		Cache: CacheConfig{
			FrameSizeMB:     256,
			FrameTTLMinutes: 10,
			QueryCacheSize:  1000,
		},
		Render: RenderConfig{
			CellSize: 12,
		},
		Session: SessionConfig{
			WindowStart: 0,
			WindowEnd:   25,
			ScrollStep:  5,
			MaxSessions: 1024,
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Data.ProteinsPath == "" {
		cfg.Data.ProteinsPath = defaults.Data.ProteinsPath
	}
	if cfg.Cache.FrameSizeMB == 0 {
		cfg.Cache.FrameSizeMB = defaults.Cache.FrameSizeMB
	}
	if cfg.Cache.FrameTTLMinutes == 0 {
		cfg.Cache.FrameTTLMinutes = defaults.Cache.FrameTTLMinutes
	}
	if cfg.Cache.QueryCacheSize == 0 {
		cfg.Cache.QueryCacheSize = defaults.Cache.QueryCacheSize
	}
	if cfg.Render.CellSize == 0 {
		cfg.Render.CellSize = defaults.Render.CellSize
	}
	// A zero window start is meaningful and kept.
	if cfg.Session.WindowEnd == 0 {
		cfg.Session.WindowEnd = defaults.Session.WindowEnd
	}
	if cfg.Session.ScrollStep == 0 {
		cfg.Session.ScrollStep = defaults.Session.ScrollStep
	}
	if cfg.Session.MaxSessions == 0 {
		cfg.Session.MaxSessions = defaults.Session.MaxSessions
	}
}
