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

	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/allocation"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/audit"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/crew"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/factory"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/metrics"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/monitoring"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/sweep"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/auth"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/redis"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/store/postgres"
)

// EnvPrefix prefixes environment overrides. PACE_SWEEP__WIDTH_MINUTES=5 sets
// sweep.width_minutes.
const EnvPrefix = "PACE_"

type Config struct {
	HTTP       HTTPConfig        `json:"http"`
	Store      StoreConfig       `json:"store"`
	Redis      redis.Config      `json:"redis"`
	Allocation allocation.Config `json:"allocation"`
	Crew       crew.Config       `json:"crew"`
	Sweep      sweep.Config      `json:"sweep"`
	Notify     NotifyConfig      `json:"notify"`
	Audit      audit.Config      `json:"audit"`
	Metrics    metrics.Config    `json:"metrics"`
	Logging    LoggingConfig     `json:"logging"`
	Sentry     monitoring.Config `json:"sentry"`
	Auth       auth.Config       `json:"auth"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr                string `json:"addr"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

// StoreConfig selects the gateway implementation.
type StoreConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `json:"driver"`
	// Fixture seeds the store from a YAML file on start.
	Fixture  string          `json:"fixture"`
	Postgres postgres.Config `json:"postgres"`
}

// NotifyConfig lists the notifier modules. An empty list logs messages.
type NotifyConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeoutSeconds == 0 {
		c.HTTP.ReadTimeoutSeconds = 10
	}
	if c.HTTP.WriteTimeoutSeconds == 0 {
		c.HTTP.WriteTimeoutSeconds = 30
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	c.Allocation.SetDefaults()
	c.Crew.SetDefaults()
	c.Sweep.SetDefaults()
	c.Audit.SetDefaults()
	c.Metrics.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and joins the errors found.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			errs = append(errs, errors.New("store.postgres.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	errs = append(errs,
		c.Allocation.Validate(),
		c.Sweep.Validate(),
		c.Audit.Validate(),
		c.Logging.Validate(),
	)
	return errors.Join(errs...)
}

// Load reads the file at path, applies PACE_ environment overrides, defaults
// and validation. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
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
