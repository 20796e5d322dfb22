// Package config aggregates the proxy's component configurations and loads
// them from JSON or YAML files. Every section has working defaults; a file
// only needs the fields it wants to change.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pkg/breaker"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pkg/cache"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/pool"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/scaler"
)

// ControllerConfig tunes the proxy's background control loops.
type ControllerConfig struct {
	// EvaluateInterval is the autoscaler sampling cadence.
	EvaluateInterval time.Duration `json:"evaluate_interval" yaml:"evaluate_interval"`

	// HealthInterval is the pool health sweep cadence.
	HealthInterval time.Duration `json:"health_interval" yaml:"health_interval"`

	// BatchWorkers and BatchQueueSize size the batch worker pool.
	BatchWorkers   int `json:"batch_workers" yaml:"batch_workers"`
	BatchQueueSize int `json:"batch_queue_size" yaml:"batch_queue_size"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level"`

	// Format is "json" or "text".
	Format string `json:"format" yaml:"format"`
}

// Config is the complete proxy configuration.
type Config struct {
	Pool       pool.Config      `json:"pool" yaml:"pool"`
	Cache      cache.Config     `json:"cache" yaml:"cache"`
	Breaker    breaker.Config   `json:"breaker" yaml:"breaker"`
	Scaler     scaler.Config    `json:"scaler" yaml:"scaler"`
	Controller ControllerConfig `json:"controller" yaml:"controller"`
	Metrics    MetricsConfig    `json:"metrics" yaml:"metrics"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
}

// Default returns a configuration with working defaults for every section.
func Default() *Config {
	return &Config{
		Pool:    pool.DefaultConfig(),
		Cache:   cache.DefaultConfig(),
		Breaker: breaker.DefaultConfig(),
		Scaler:  scaler.DefaultConfig(),
		Controller: ControllerConfig{
			EvaluateInterval: 15 * time.Second,
			HealthInterval:   30 * time.Second,
			BatchWorkers:     4,
			BatchQueueSize:   256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Pool.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Breaker.Validate(); err != nil {
		return err
	}
	if err := c.Scaler.Validate(); err != nil {
		return err
	}
	if c.Controller.EvaluateInterval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"controller.evaluate_interval must be positive")
	}
	if c.Controller.HealthInterval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"controller.health_interval must be positive")
	}
	if c.Controller.BatchWorkers < 1 || c.Controller.BatchQueueSize < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"controller batch workers and queue size must be at least 1")
	}
	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
				fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
				"metrics.path must start with /")
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("unknown logging.level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			fmt.Sprintf("unknown logging.format %q", c.Logging.Format))
	}
	return nil
}

// Load reads a configuration file, layering it over defaults. The format is
// chosen by extension: .json, or .yaml/.yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(errors.ErrConfigNotFound, "config", "Load", path)
		}
		return nil, errors.Wrap(err, "config", "Load", path)
	}

	config := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "json parse")
		}
	case ".yaml", ".yml":
		// YAML goes through the JSON decoders so duration strings work in
		// both formats
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "yaml parse")
		}
		jsonData, err := json.Marshal(raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "yaml conversion")
		}
		if err := json.Unmarshal(jsonData, config); err != nil {
			return nil, errors.WrapInvalid(err, "config", "Load", "yaml decode")
		}
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Load",
			fmt.Sprintf("unsupported config extension %q", ext))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
