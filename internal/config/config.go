// Package config loads service configuration from an optional YAML file with
// environment overrides. Invalid or missing values fall back to documented
// defaults; configuration trouble is never fatal.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quell-mod/quell-go/internal/policy"
)

const (
	configPathEnv     = "QUELL_CONFIG"
	portEnv           = "PORT"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_URL"
	apiKeyEnv         = "QUELL_API_KEY"
	sensitivityEnv    = "QUELL_SENSITIVITY"
	autoDeleteEnv     = "QUELL_AUTO_DELETE"
	remoteProviderEnv = "QUELL_REMOTE_PROVIDER"
	remoteURLEnv      = "QUELL_REMOTE_URL"
	remoteKeyEnv      = "QUELL_REMOTE_API_KEY"
	anthropicKeyEnv   = "ANTHROPIC_API_KEY"
	tlsDomainEnv      = "QUELL_TLS_DOMAIN"
	acmeEmailEnv      = "ACME_EMAIL"
)

// Config holds all settings required across the service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Moderation ModerationConfig `yaml:"moderation"`
	Remote     RemoteConfig     `yaml:"remote"`

	// warnings collects the non-fatal issues Load ran into. It is surfaced
	// through Warnings so the caller can log them once the logger exists;
	// Load itself runs before logging is configured.
	warnings []string
}

// ServerConfig describes the HTTP surface.
type ServerConfig struct {
	Port      string `yaml:"port"`
	APIKey    string `yaml:"apiKey"`
	LogLevel  string `yaml:"logLevel"`
	TLSDomain string `yaml:"tlsDomain"`
	ACMEEmail string `yaml:"acmeEmail"`
}

// DatabaseConfig describes the audit store connection. An empty DSN selects
// the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ModerationConfig holds the pipeline dials. Pointer booleans distinguish
// "unset, use default true" from an explicit false in the YAML file.
type ModerationConfig struct {
	Sensitivity       int   `yaml:"sensitivity"`
	AutoDelete        *bool `yaml:"autoDelete"`
	HoneypotEnabled   *bool `yaml:"honeypotEnabled"`
	MinElapsedSeconds int   `yaml:"minElapsedSeconds"`
	SkipRegistered    *bool `yaml:"skipRegistered"`
}

// RemoteConfig selects and parameterizes the remote classifier.
type RemoteConfig struct {
	// Provider is one of "http", "claude", or "off".
	Provider       string `yaml:"provider"`
	URL            string `yaml:"url"`
	APIKey         string `yaml:"apiKey"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			cfg.warn(fmt.Sprintf("cannot read %s: %v, falling back to defaults", path, err))
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			cfg = defaultConfig()
			cfg.warn(fmt.Sprintf("cannot parse %s: %v, falling back to defaults", path, err))
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:     "8080",
			LogLevel: "info",
		},
		Moderation: ModerationConfig{
			Sensitivity:       policy.DefaultSensitivity,
			MinElapsedSeconds: 3,
		},
		Remote: RemoteConfig{
			Provider:       "off",
			TimeoutSeconds: 3,
		},
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(portEnv); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv(tlsDomainEnv); v != "" {
		c.Server.TLSDomain = v
	}
	if v := os.Getenv(acmeEmailEnv); v != "" {
		c.Server.ACMEEmail = v
	}
	if v := os.Getenv(sensitivityEnv); v != "" {
		if n, err := strconv.Atoi(v); err != nil {
			c.warn(fmt.Sprintf("invalid %s=%q, using default", sensitivityEnv, v))
		} else {
			c.Moderation.Sensitivity = n
		}
	}
	if v := os.Getenv(autoDeleteEnv); v != "" {
		if b, err := strconv.ParseBool(v); err != nil {
			c.warn(fmt.Sprintf("invalid %s=%q, using default", autoDeleteEnv, v))
		} else {
			c.Moderation.AutoDelete = &b
		}
	}
	if v := os.Getenv(remoteProviderEnv); v != "" {
		c.Remote.Provider = v
	}
	if v := os.Getenv(remoteURLEnv); v != "" {
		c.Remote.URL = v
	}
	if v := os.Getenv(remoteKeyEnv); v != "" {
		c.Remote.APIKey = v
	}
	if c.Remote.Provider == "claude" && c.Remote.APIKey == "" {
		c.Remote.APIKey = os.Getenv(anthropicKeyEnv)
	}
}

func (c *Config) warn(msg string) {
	c.warnings = append(c.warnings, msg)
}

// Warnings returns the non-fatal issues Load encountered, in order. The
// entrypoint logs them through the structured logger once it is constructed.
func (c Config) Warnings() []string {
	return c.warnings
}

// Sensitivity returns the dial clamped to its valid range.
func (c Config) Sensitivity() int {
	return policy.ClampSensitivity(c.Moderation.Sensitivity)
}

// AutoDelete reports whether spam is hard-blocked instead of queued. Default true.
func (c Config) AutoDelete() bool {
	if c.Moderation.AutoDelete == nil {
		return true
	}
	return *c.Moderation.AutoDelete
}

// HoneypotEnabled reports whether the hidden-field signal is active. Default true.
func (c Config) HoneypotEnabled() bool {
	if c.Moderation.HoneypotEnabled == nil {
		return true
	}
	return *c.Moderation.HoneypotEnabled
}

// SkipRegistered reports whether trusted registered authors bypass
// classification. Default true.
func (c Config) SkipRegistered() bool {
	if c.Moderation.SkipRegistered == nil {
		return true
	}
	return *c.Moderation.SkipRegistered
}

// MinElapsedSeconds returns the too-fast-submission floor. Default 3.
func (c Config) MinElapsedSeconds() int {
	if c.Moderation.MinElapsedSeconds <= 0 {
		return 3
	}
	return c.Moderation.MinElapsedSeconds
}

// RemoteTimeout returns the bounded remote classifier timeout. Default 3s.
func (c Config) RemoteTimeout() time.Duration {
	if c.Remote.TimeoutSeconds <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}
