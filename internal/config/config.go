// Package config provides configuration loading and structs for the storefront server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/storefront/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Ranking RankingConfig `yaml:"ranking"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// LatencyMinMS and LatencyMaxMS bound the simulated response delay. Both zero
	// disables it.
	LatencyMinMS int `yaml:"latency_min_ms"`
	LatencyMaxMS int `yaml:"latency_max_ms"`
}

// CatalogConfig holds where the product catalog comes from.
type CatalogConfig struct {
	// FixturesPath is a YAML or XLSX catalog file. Empty means the built-in products.
	FixturesPath string `yaml:"fixtures_path"`
	// DatabasePath is the SQLite file imported catalogs are kept in.
	DatabasePath string `yaml:"database_path"`
	// Watch reloads the catalog when FixturesPath changes.
	Watch bool `yaml:"watch"`
}

// RankingConfig holds the per call-site ranking profiles, keyed by profile name.
type RankingConfig struct {
	Profiles map[string]*ranking.Profile `yaml:"profiles"`
}

// UnmarshalYAML decodes each configured profile over the built-in profile of the same
// name, so a config file only lists what it changes. Setting a weight to 0 switches the
// signal off.
func (rc *RankingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Profiles map[string]yaml.Node `yaml:"profiles"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	rc.Profiles = make(map[string]*ranking.Profile, len(raw.Profiles))
	for name, node := range raw.Profiles {
		p := ranking.DefaultProfile(name)
		if err := node.Decode(p); err != nil {
			return fmt.Errorf("ranking profile %s: %w", name, err)
		}
		if p.Name == "" {
			p.Name = name
		}
		rc.Profiles[name] = p
	}
	return nil
}

// MetricsConfig holds prometheus endpoint settings.
type MetricsConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EnabledOrDefault returns whether metrics are served; defaults to true when unset.
func (m *MetricsConfig) EnabledOrDefault() bool {
	if m.Enabled != nil {
		return *m.Enabled
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Catalog.DatabasePath = expandPath(cfg.Catalog.DatabasePath, configDir)
	if cfg.Catalog.FixturesPath != "" {
		cfg.Catalog.FixturesPath = expandPath(cfg.Catalog.FixturesPath, configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks settings that defaults cannot repair.
func Validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", cfg.Server.Port)
	}
	if cfg.Server.LatencyMinMS < 0 || cfg.Server.LatencyMaxMS < cfg.Server.LatencyMinMS {
		return fmt.Errorf("latency bounds %d..%d ms are invalid", cfg.Server.LatencyMinMS, cfg.Server.LatencyMaxMS)
	}
	for _, p := range cfg.Ranking.Profiles {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
