package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads, parses, defaults and validates a smithers.yaml file
// (spec §6 SMITHERS_CONFIG), matching hector's config.LoadConfig entry
// point.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(data)
}

// LoadConfigFromString parses YAML content directly, used by tests and by
// smithers init's scaffolded defaults.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	return parse([]byte(yamlContent))
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	expandEnvVarsInConfig(&cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns a zero-config Config: defaults applied, no file read,
// suitable for `smithers run` invocations with no SMITHERS_CONFIG present
// (spec §6's discovery order falls through to CLI flags + environment).
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Provider looks up a named provider config, falling back to "default".
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	if name == "" {
		name = "default"
	}
	p, ok := c.Providers[name]
	return p, ok
}
