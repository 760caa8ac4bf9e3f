// Package config provides the typed configuration tree for a Smithers
// process (spec §10): scheduler bounds, named claude-provider credentials,
// the execution controller's webhook, and the observability pipeline.
//
// Grounded on hector's config/types.go: one struct per concern, each
// implementing ConfigInterface (Validate/SetDefaults), yaml tags throughout,
// maps keyed by name for the services a run can declare more than one of
// (hector's LLMs/Databases/Embedders map[string]...; here, Providers).
package config

import "fmt"

// Interface mirrors hector's config.ConfigInterface: every section of Config
// knows how to validate itself and fill in defaults independently.
type Interface interface {
	Validate() error
	SetDefaults()
}

// Config is the root of the typed configuration tree, unmarshaled from
// smithers.yaml (spec §6 SMITHERS_CONFIG).
type Config struct {
	Version string `yaml:"version,omitempty"`

	Scheduler     SchedulerConfig           `yaml:"scheduler,omitempty"`
	Providers     map[string]ProviderConfig `yaml:"providers,omitempty"`
	Controller    ControllerConfig          `yaml:"controller,omitempty"`
	Observability ObservabilityConfig       `yaml:"observability,omitempty"`
	Persistence   PersistenceConfig         `yaml:"persistence,omitempty"`
}

var _ Interface = (*Config)(nil)

// Validate checks every section, matching hector's Config.Validate's
// per-section fmt.Errorf("%s validation failed: %w", ...) wrapping.
func (c *Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler config validation failed: %w", err)
	}
	for name, p := range c.Providers {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("provider %q validation failed: %w", name, err)
		}
	}
	if err := c.Controller.Validate(); err != nil {
		return fmt.Errorf("controller config validation failed: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config validation failed: %w", err)
	}
	if err := c.Persistence.Validate(); err != nil {
		return fmt.Errorf("persistence config validation failed: %w", err)
	}
	return nil
}

// SetDefaults fills in every section's defaults, creating a "default"
// provider entry when none is declared (hector's zero-config pattern in
// Config.SetDefaults: "Create default services if none exist").
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	if len(c.Providers) == 0 {
		c.Providers["default"] = ProviderConfig{}
	}
	for name, p := range c.Providers {
		p.SetDefaults()
		c.Providers[name] = p
	}
	c.Controller.SetDefaults()
	c.Observability.SetDefaults()
	c.Persistence.SetDefaults()
}

// SchedulerConfig bounds a Ralph loop run (spec §4.4 Options) when the CLI
// doesn't override it with flags.
type SchedulerConfig struct {
	MaxFrames      int   `yaml:"max_frames,omitempty"`
	TimeoutSeconds int   `yaml:"timeout_seconds,omitempty"`
	MockMode       *bool `yaml:"mock_mode,omitempty"`
}

var _ Interface = (*SchedulerConfig)(nil)

func (c *SchedulerConfig) Validate() error {
	if c.MaxFrames < 0 {
		return fmt.Errorf("max_frames must be >= 0, got %d", c.MaxFrames)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must be >= 0, got %d", c.TimeoutSeconds)
	}
	return nil
}

func (c *SchedulerConfig) SetDefaults() {
	if c.MaxFrames == 0 {
		c.MaxFrames = 100
	}
}

// ProviderConfig names one set of Anthropic credentials a claude-provider
// node can reference by name (spec §4.9's subtree-rooting node carries the
// rate/budget limits; this section supplies the API key and transport those
// limits gate). Env vars are expanded at load time (env.go), mirroring
// hector's ${VAR:-default} support in config/env.go.
type ProviderConfig struct {
	APIKey       string `yaml:"api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	DefaultModel string `yaml:"default_model,omitempty"`
}

var _ Interface = (*ProviderConfig)(nil)

func (c *ProviderConfig) Validate() error {
	return nil
}

func (c *ProviderConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.anthropic.com"
	}
	if c.DefaultModel == "" {
		c.DefaultModel = "claude-sonnet-4-5-20250929"
	}
}

// ControllerConfig configures the execution controller's optional HTTP
// surface (spec §4.7, internal/controller.Webhook).
type ControllerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret,omitempty"` // usually left empty; SMITHERS_CONTROL_JWT_SECRET overrides
}

var _ Interface = (*ControllerConfig)(nil)

func (c *ControllerConfig) Validate() error {
	if c.Enabled && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

func (c *ControllerConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8088
	}
}

// ObservabilityConfig drives internal/observability's tracer and metrics
// construction (spec §4.10).
type ObservabilityConfig struct {
	TracingEnabled bool    `yaml:"tracing_enabled"`
	Verbose        bool    `yaml:"verbose"`
	OTLPEndpoint   string  `yaml:"otlp_endpoint,omitempty"`
	SamplingRate   float64 `yaml:"sampling_rate,omitempty"`
	ServiceName    string  `yaml:"service_name,omitempty"`
	MetricsEnabled bool    `yaml:"metrics_enabled"`
}

var _ Interface = (*ObservabilityConfig)(nil)

func (c *ObservabilityConfig) Validate() error {
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling_rate must be within [0,1], got %f", c.SamplingRate)
	}
	return nil
}

func (c *ObservabilityConfig) SetDefaults() {
	if c.SamplingRate == 0 {
		c.SamplingRate = 1
	}
	if c.ServiceName == "" {
		c.ServiceName = "smithers"
	}
}

// PersistenceConfig selects the optional cross-restart checkpoint backend
// for the scheduler's execution store and approval set (spec §14). An
// empty or "memory" Backend keeps the teacher's original in-process-only
// behavior; the other three values point at a coordination/KV cluster
// already running alongside the Smithers process.
type PersistenceConfig struct {
	Backend   string   `yaml:"backend,omitempty"` // "", "memory", "consul", "etcd", "zookeeper"
	Address   string   `yaml:"address,omitempty"` // consul
	Endpoints []string `yaml:"endpoints,omitempty"` // etcd, zookeeper
	Path      string   `yaml:"path,omitempty"`     // key/path prefix
}

var _ Interface = (*PersistenceConfig)(nil)

func (c *PersistenceConfig) Validate() error {
	switch c.Backend {
	case "", "memory":
		return nil
	case "consul":
		return nil
	case "etcd", "zookeeper":
		if len(c.Endpoints) == 0 {
			return fmt.Errorf("persistence backend %q requires at least one endpoint", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Backend)
	}
}

func (c *PersistenceConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		c.Path = "/smithers/runs"
	}
}
