// Package config loads the service configuration from a file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/cogen/core/advisor"
	"github.com/kilianp07/cogen/core/dispatch"
	"github.com/kilianp07/cogen/core/freesteam"
	"github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/plant"
	"github.com/kilianp07/cogen/core/tariff"
	"github.com/kilianp07/cogen/infra/monitoring"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. COGEN_HTTP__ADDR.
const EnvPrefix = "COGEN_"

type Config struct {
	Plant      plant.Plant        `json:"plant"`
	Tariff     tariff.Config      `json:"tariff"`
	FreeSteam  freesteam.Config   `json:"free_steam"`
	Dispatch   dispatch.Config    `json:"dispatch"`
	Advisor    advisor.Thresholds `json:"advisor"`
	Metrics    metrics.Config     `json:"metrics"`
	Journal    JournalConfig      `json:"journal"`
	Savings    SavingsConfig      `json:"savings"`
	Publishers PublishersConfig   `json:"publishers"`
	HTTP       HTTPConfig         `json:"http"`
	Sentry     monitoring.Config  `json:"sentry"`
	Log        LogConfig          `json:"log"`
	// ScenariosFile replaces the built-in scenario catalogue when set.
	ScenariosFile string `json:"scenarios_file"`
}

// Load reads path, applies environment overrides, fills defaults and
// validates every section. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(plantDefaults{}, nil); err != nil {
		return nil, err
	}
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Plant.SetDefaults()
	c.Tariff.SetDefaults()
	c.FreeSteam.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Advisor.SetDefaults()
	c.Journal.SetDefaults()
	c.Savings.SetDefaults()
	c.Publishers.SetDefaults()
	c.HTTP.SetDefaults()
	c.Log.SetDefaults()
}

// Validate checks every section and joins the failures.
func (c Config) Validate() error {
	return errors.Join(
		c.Plant.Validate(),
		c.Tariff.Validate(),
		c.FreeSteam.Validate(),
		c.Dispatch.Validate(),
		c.Advisor.Validate(),
		c.Metrics.Validate(),
		c.Journal.Validate(),
		c.Savings.Validate(),
		c.Publishers.Validate(),
		c.HTTP.Validate(),
		c.Log.Validate(),
	)
}
