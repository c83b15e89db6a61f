// Package config implements AppConfig (spec.md §6) and the YAML-backed
// ConfigurationLoader (spec.md §4.8), extending the teacher's config.Load
// shape to the pyplyn domain.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig is read once at startup per spec.md §6.
type AppConfig struct {
	Global    GlobalConfig    `yaml:"global"`
	Hazelcast HazelcastConfig `yaml:"hazelcast"`
	Alert     AlertConfig     `yaml:"alert"`
}

// GlobalConfig locates the configuration/connector sources and the
// UpdateManager's poll interval.
type GlobalConfig struct {
	ConfigurationsPath              string `yaml:"configurationsPath"`
	ConnectorsPath                  string `yaml:"connectorsPath"`
	RunOnce                         bool   `yaml:"runOnce"`
	UpdateConfigurationIntervalMillis int64  `yaml:"updateConfigurationIntervalMillis"`
}

// HazelcastConfig governs cluster membership; Enabled = false selects the
// degenerate single-node Cluster implementation.
type HazelcastConfig struct {
	Enabled bool           `yaml:"enabled"`
	Config  map[string]any `yaml:"config"`
}

// AlertConfig is read but owned by a consumer outside this distillation's
// scope; carried through because AppConfig is parsed as one document.
type AlertConfig struct {
	Enabled             bool               `yaml:"enabled"`
	CheckIntervalMillis int64              `yaml:"checkIntervalMillis"`
	Thresholds          map[string]float64 `yaml:"thresholds"`
}

// Load reads and parses the AppConfig document at path, applying defaults
// the way the teacher's config.Load applies TimescaleConfig/WAL/Metrics
// defaults.
func Load(path string) (*AppConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Global.UpdateConfigurationIntervalMillis == 0 {
		c.Global.UpdateConfigurationIntervalMillis = 60_000
	}
	if c.Alert.CheckIntervalMillis == 0 {
		c.Alert.CheckIntervalMillis = 60_000
	}
}

func (c *AppConfig) validate() error {
	if c.Global.ConfigurationsPath == "" {
		return fmt.Errorf("config: global.configurationsPath is required")
	}
	if c.Global.ConnectorsPath == "" {
		return fmt.Errorf("config: global.connectorsPath is required")
	}
	return nil
}
