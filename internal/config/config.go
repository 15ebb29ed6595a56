// Package config loads the research agent core's configuration: defaults,
// then an optional YAML file decoded on top of them, then a handful of
// environment overrides for container deployments, then validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ToolsConfig configures ToolHub invocation behavior.
type ToolsConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
	UseTaskRouter bool          `mapstructure:"use_task_router" yaml:"use_task_router"`
}

// PerformanceConfig configures the orchestrator's request-level cache.
type PerformanceConfig struct {
	CacheEnabled bool          `mapstructure:"cache_enabled" yaml:"cache_enabled"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// ObservabilityConfig configures TraceContext and the OTel/Prometheus
// exporters that back it.
type ObservabilityConfig struct {
	Enabled           bool   `mapstructure:"enabled" yaml:"enabled"`
	MaxEvents         int    `mapstructure:"max_events" yaml:"max_events"`
	MaxPreview        int    `mapstructure:"max_preview" yaml:"max_preview"`
	IncludeInResponse bool   `mapstructure:"include_in_response" yaml:"include_in_response"`
	OTLPEndpoint      string `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	MetricsEnabled    bool   `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// MemoryConfig configures the bounded conversation log.
type MemoryConfig struct {
	ShortTermSize int `mapstructure:"short_term_size" yaml:"short_term_size"`
}

// TaskConfig configures the overall per-request deadline.
type TaskConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Config is the top-level configuration document.
type Config struct {
	Tools         ToolsConfig         `mapstructure:"tools" yaml:"tools"`
	Performance   PerformanceConfig   `mapstructure:"performance" yaml:"performance"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
	Memory        MemoryConfig        `mapstructure:"memory" yaml:"memory"`
	Task          TaskConfig          `mapstructure:"task" yaml:"task"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
}

// Default returns a Config populated with the service's built-in defaults.
func Default() *Config {
	return &Config{
		Tools: ToolsConfig{
			Timeout:       10 * time.Second,
			MaxRetries:    2,
			UseTaskRouter: false,
		},
		Performance: PerformanceConfig{
			CacheEnabled: true,
			CacheTTL:     3600 * time.Second,
		},
		Observability: ObservabilityConfig{
			Enabled:           false,
			MaxEvents:         200,
			MaxPreview:        500,
			IncludeInResponse: true,
			MetricsEnabled:    false,
		},
		Memory: MemoryConfig{ShortTermSize: 100},
		Task:   TaskConfig{Timeout: 300 * time.Second},
		Server: ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads YAML from path (if non-empty and present), decodes it onto the
// defaults, applies RESEARCHCORE_-prefixed environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else {
			var raw map[string]any
			if err := yaml.Unmarshal(data, &raw); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
			dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
				Result:           cfg,
				WeaklyTypedInput: true,
				DecodeHook: mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
				),
			})
			if err != nil {
				return nil, fmt.Errorf("config: build decoder: %w", err)
			}
			if err := dec.Decode(raw); err != nil {
				return nil, fmt.Errorf("config: decode %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides mirrors a handful of hot config keys to environment
// variables, for container deployments that prefer env over a mounted file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RESEARCHCORE_TOOLS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Tools.Timeout = d
		}
	}
	if v := os.Getenv("RESEARCHCORE_TASK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Task.Timeout = d
		}
	}
	if v := os.Getenv("RESEARCHCORE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RESEARCHCORE_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RESEARCHCORE_OBSERVABILITY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Observability.Enabled = b
		}
	}
}

// Validate rejects configuration values that would make the pipeline
// meaningless (zero/negative timeouts, empty addr).
func (c *Config) Validate() error {
	var problems []string
	if c.Tools.Timeout <= 0 {
		problems = append(problems, "tools.timeout must be positive")
	}
	if c.Tools.MaxRetries < 0 {
		problems = append(problems, "tools.max_retries must be >= 0")
	}
	if c.Task.Timeout <= 0 {
		problems = append(problems, "task.timeout must be positive")
	}
	if c.Memory.ShortTermSize <= 0 {
		problems = append(problems, "memory.short_term_size must be positive")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		problems = append(problems, "server.addr must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
