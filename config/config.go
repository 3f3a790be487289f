// Package config loads the application settings from a YAML or JSON file
// with K_ prefixed environment overrides.
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

	"github.com/kilianp07/tellocmd/core/journal"
	"github.com/kilianp07/tellocmd/core/metrics"
	"github.com/kilianp07/tellocmd/infra/monitoring"
	"github.com/kilianp07/tellocmd/infra/mqtt"
)

type Config struct {
	Drone   DroneConfig       `json:"drone"`
	MQTT    mqtt.Config       `json:"mqtt"`
	Metrics metrics.Config    `json:"metrics"`
	Journal journal.Config    `json:"journal"`
	Sentry  monitoring.Config `json:"sentry"`
}

// Load reads path, applies environment overrides such as
// K_DRONE__HOST=10.0.0.2, then fills defaults and validates. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
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
	}
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
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

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Drone.SetDefaults()
	c.Journal.SetDefaults()
	if c.MQTT.Enabled {
		c.MQTT.SetDefaults()
	}
}

// Validate reports every invalid section.
func (c Config) Validate() error {
	var errs []error
	if err := c.Drone.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("drone: %w", err))
	}
	if err := c.Journal.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("journal: %w", err))
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Sentry.TracesSampleRate < 0 || c.Sentry.TracesSampleRate > 1 {
		errs = append(errs, fmt.Errorf("sentry: traces_sample_rate %.2f out of range", c.Sentry.TracesSampleRate))
	}
	return errors.Join(errs...)
}
