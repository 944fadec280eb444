// Package config loads the server configuration from layered sources:
// built-in defaults, an optional YAML file and environment variables, with
// later layers overriding earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, first hit wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ajoledger/config.yaml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "AJOLEDGER_CONFIG"

// envPrefix namespaces the environment variable layer:
// AJOLEDGER_SERVER_PORT -> server.port.
const envPrefix = "AJOLEDGER_"

// Config is the full server configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Auth         AuthConfig         `koanf:"auth"`
	Distribution DistributionConfig `koanf:"distribution"`
	RateLimit    RateLimitConfig    `koanf:"ratelimit"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// AuthConfig holds the JWT settings. The secret has no default; the server
// refuses to start without one.
type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret" validate:"required,min=32"`
	TokenDuration time.Duration `koanf:"token_duration" validate:"gt=0"`
}

// DistributionConfig selects the payout eligibility policy.
type DistributionConfig struct {
	// Policy is "full" or "threshold".
	Policy string `koanf:"policy" validate:"oneof=full threshold"`

	// Threshold is the required fraction of the expected pool in (0,1],
	// used only by the threshold policy.
	Threshold float64 `koanf:"threshold"`
}

// RateLimitConfig bounds mutating requests per client IP.
type RateLimitConfig struct {
	Requests int           `koanf:"requests" validate:"gte=1"`
	Window   time.Duration `koanf:"window" validate:"gt=0"`
}

// LoggingConfig holds the slog settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level" validate:"oneof=debug info warn error"`

	// Format is "text" (colored, for terminals) or "json".
	Format string `koanf:"format" validate:"oneof=text json"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/ajoledger.db",
		},
		Auth: AuthConfig{
			TokenDuration: 24 * time.Hour,
		},
		Distribution: DistributionConfig{
			Policy:    "full",
			Threshold: 1.0,
		},
		RateLimit: RateLimitConfig{
			Requests: 100,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the config file if one
// exists, then AJOLEDGER_* environment variables, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration beyond what struct tags express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.Distribution.Policy == "threshold" &&
		(c.Distribution.Threshold <= 0 || c.Distribution.Threshold > 1) {
		return fmt.Errorf("distribution.threshold must be in (0,1], got %v", c.Distribution.Threshold)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
