// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig  `mapstructure:"server"`
	App        AppConfig     `mapstructure:"app"`
	Proxy      ProxyConfig   `mapstructure:"proxy"`
	Fetch      FetchConfig   `mapstructure:"fetch"`
	UserAgents []string      `mapstructure:"user_agents"`
	Logging    LoggingConfig `mapstructure:"logging"`
	Tracing    TracingConfig `mapstructure:"tracing"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AppConfig identifies the running service on /health.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ProxyConfig lists outbound proxy endpoints by category.
type ProxyConfig struct {
	Datacenter []string `mapstructure:"datacenter"`
}

// FetchConfig governs attempt and batch behavior.
type FetchConfig struct {
	MaxRetries         int     `mapstructure:"max_retries"`
	TimeoutSeconds     float64 `mapstructure:"timeout_seconds"`
	MaxConcurrency     int     `mapstructure:"max_concurrency"`
	InsecureSkipVerify bool    `mapstructure:"insecure_skip_verify"`
	MaxBodyBytes       int     `mapstructure:"max_body_bytes"`
	DomainRPS          float64 `mapstructure:"domain_rps"`
	DomainBurst        int     `mapstructure:"domain_burst"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// Request override limits.
const (
	MaxRetriesLimit     = 10
	MaxTimeoutSeconds   = 300.0
	defaultMaxBodyBytes = 10 << 20
)

// Load builds a Config from an optional .env file, an optional config
// file, and the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PROXYFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Proxy.Datacenter = splitList(cfg.Proxy.Datacenter)
	cfg.UserAgents = splitList(cfg.UserAgents)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindLegacyEnv keeps the unprefixed variable names deployments already use.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"proxy.datacenter": {"PROXYFETCH_PROXY_DATACENTER", "DATACENTER_PROXIES"},
		"app.name":         {"PROXYFETCH_APP_NAME", "APP_NAME"},
		"app.version":      {"PROXYFETCH_APP_VERSION", "APP_VERSION"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("app.name", "proxyfetch")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("proxy.datacenter", []string{})
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_concurrency", 0)
	v.SetDefault("fetch.insecure_skip_verify", false)
	v.SetDefault("fetch.max_body_bytes", defaultMaxBodyBytes)
	v.SetDefault("fetch.domain_rps", 0)
	v.SetDefault("fetch.domain_burst", 1)
	v.SetDefault("user_agents", []string{})
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
}

// splitList flattens comma-separated entries, trims them, and drops blanks.
// Environment values arrive as a single comma-separated string.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.MaxRetries < 1 || c.Fetch.MaxRetries > MaxRetriesLimit {
		return fmt.Errorf("fetch.max_retries must be between 1 and %d", MaxRetriesLimit)
	}
	if c.Fetch.TimeoutSeconds <= 0 || c.Fetch.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("fetch.timeout_seconds must be > 0 and <= %g", MaxTimeoutSeconds)
	}
	if c.Fetch.MaxConcurrency < 0 {
		return fmt.Errorf("fetch.max_concurrency must be >= 0")
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0")
	}
	if c.Fetch.DomainRPS < 0 {
		return fmt.Errorf("fetch.domain_rps must be >= 0")
	}
	return nil
}

// FetchTimeout converts the configured per-attempt timeout to a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds * float64(time.Second))
}

// ShutdownTimeout returns the graceful shutdown budget for the HTTP server.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
