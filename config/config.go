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

	"github.com/kilianp07/rosterd/core/metrics"
	"github.com/kilianp07/rosterd/infra/mqtt"
)

// Config is the root configuration document.
type Config struct {
	MQTT        mqtt.Config       `json:"mqtt"`
	Metrics     metrics.Config    `json:"metrics"`
	Policy      PolicyConfig      `json:"policy"`
	Repair      RepairConfig      `json:"repair"`
	Plan        PlanConfig        `json:"plan"`
	Idempotency IdempotencyConfig `json:"idempotency"`
	Store       StoreConfig       `json:"store"`
}

// Load reads configuration from a JSON or YAML file with optional
// environment overrides (prefix R_, __ as the key separator).
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
	if err := k.Load(env.Provider("R_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "r_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Policy.SetDefaults()
	cfg.Repair.SetDefaults()
	cfg.Plan.SetDefaults()
	cfg.Idempotency.SetDefaults()
	cfg.Store.SetDefaults()
	// MQTT intake is optional; a config without a broker runs without it.
	if cfg.MQTT.Broker != "" {
		if err := cfg.MQTT.Validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Repair.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
