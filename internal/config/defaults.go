package config

import "github.com/hyperjump/storefront/internal/ranking"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Catalog.DatabasePath == "" {
		cfg.Catalog.DatabasePath = "/usr/local/var/storefront/data/catalog.db"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Every call site gets a profile; configured ones are completed from the built-ins.
	if cfg.Ranking.Profiles == nil {
		cfg.Ranking.Profiles = make(map[string]*ranking.Profile)
	}
	for name, def := range ranking.DefaultProfiles() {
		p, ok := cfg.Ranking.Profiles[name]
		if !ok || p == nil {
			cfg.Ranking.Profiles[name] = def
			continue
		}
		if p.Name == "" {
			p.Name = name
		}
		p.ApplyDefaults()
	}
}
