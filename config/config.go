package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/optiwatt/infra/metrics"
	"github.com/kilianp07/optiwatt/infra/mqtt"
)

// Config is the root service configuration.
type Config struct {
	API     APIConfig      `json:"api"`
	Engine  EngineConfig   `json:"engine"`
	Tariff  TariffConfig   `json:"tariff"`
	Solver  SolverConfig   `json:"solver"`
	History HistoryConfig  `json:"history"`
	Metrics metrics.Config `json:"metrics"`
	MQTT    mqtt.Config    `json:"mqtt"`
}

// APIConfig configures the HTTP API server.
type APIConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// EngineConfig carries the scheduling parameters.
type EngineConfig struct {
	// MaxLoadKW is the maximum simultaneous household load.
	MaxLoadKW float64 `json:"max_load_kw"`
	// DefaultBaseLoadKW fills the background profile when the caller
	// supplies none.
	DefaultBaseLoadKW float64 `json:"default_base_load_kw"`
}

// SetDefaults applies sane defaults.
func (c *EngineConfig) SetDefaults() {
	if c.MaxLoadKW <= 0 {
		c.MaxLoadKW = 8.0
	}
	if c.DefaultBaseLoadKW <= 0 {
		c.DefaultBaseLoadKW = 0.5
	}
}

// Load reads the configuration file at path, allowing K_ prefixed
// environment variables to override individual keys.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.API.SetDefaults()
	cfg.Engine.SetDefaults()
	cfg.Solver.SetDefaults()
	cfg.History.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.MQTT.SetDefaults()
	if err := cfg.Solver.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.History.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Tariff.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
