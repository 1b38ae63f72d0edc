package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-render-host/pkg/logging"
)

// Runtime modes. Production is assumed unless the environment explicitly
// marks the process as non-production.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// Config represents the application configuration
type Config struct {
	Server  Server         `yaml:"server" envconfig:"SERVER"`
	Engine  Engine         `yaml:"engine" envconfig:"ENGINE"`
	Logging logging.Config `yaml:"logging" envconfig:"LOG"`
	CORS    CORS           `yaml:"cors" envconfig:"CORS"`
}

// Server contains the listener and shutdown configuration.
//
// The envconfig tags carry the variable names the deployment environment
// sets directly (PORT, HOSTNAME, ENVIRONMENT); envconfig falls back to the
// bare tag name when the prefixed form is absent.
type Server struct {
	Host        string `yaml:"host" envconfig:"HOSTNAME"`
	Port        int    `yaml:"port" envconfig:"PORT"`
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`

	// GracePeriod bounds how long a draining server waits for in-flight
	// requests before the process force-exits.
	GracePeriod int `yaml:"grace_period" envconfig:"GRACE_PERIOD"` // seconds

	// KeepAliveTimeout is the idle timeout for persistent connections.
	KeepAliveTimeout int `yaml:"keep_alive_timeout" envconfig:"KEEP_ALIVE_TIMEOUT"` // seconds
}

// Engine contains configuration for the rendering engine
type Engine struct {
	// ArtifactDir is the directory of prepared build artifacts served by
	// the default static engine.
	ArtifactDir string `yaml:"artifact_dir" envconfig:"ARTIFACT_DIR"`
}

// CORS contains cross-origin request configuration
type CORS struct {
	AllowedOrigins   []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods" envconfig:"ALLOWED_METHODS"`
	AllowedHeaders   []string `yaml:"allowed_headers" envconfig:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `yaml:"exposed_headers" envconfig:"EXPOSED_HEADERS"`
	AllowCredentials bool     `yaml:"allow_credentials" envconfig:"ALLOW_CREDENTIALS"`
	MaxAge           int      `yaml:"max_age" envconfig:"MAX_AGE"` // seconds
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Load from YAML file if provided (overrides defaults)
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables (highest priority). A PORT value
	// that does not parse as an integer fails here, before any bind.
	if err := envconfig.Process("RENDER", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	cfg.resolveHost()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible default values
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Port:             3000,
			GracePeriod:      10,
			KeepAliveTimeout: 5,
		},
		Engine: Engine{
			ArtifactDir: "public",
		},
		Logging: logging.DefaultConfig(),
		CORS: CORS{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         43200,
		},
	}
}

// resolveHost pins the bind host to the runtime mode. Development traffic is
// local-only, so any host override is ignored there; production without an
// explicit host binds every interface.
func (c *Config) resolveHost() {
	if c.Server.Mode() == ModeDevelopment {
		c.Server.Host = "localhost"
		return
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive: %d", c.Server.GracePeriod)
	}

	if c.Server.KeepAliveTimeout <= 0 {
		return fmt.Errorf("keep-alive timeout must be positive: %d", c.Server.KeepAliveTimeout)
	}

	return nil
}

// GraceDuration returns the drain grace window as a duration.
func (s *Server) GraceDuration() time.Duration {
	return time.Duration(s.GracePeriod) * time.Second
}

// KeepAliveDuration returns the keep-alive idle timeout as a duration.
func (s *Server) KeepAliveDuration() time.Duration {
	return time.Duration(s.KeepAliveTimeout) * time.Second
}

// Mode returns the resolved runtime mode. Anything other than an explicit
// development marker is treated as production.
func (s *Server) Mode() string {
	if s.Environment == ModeDevelopment {
		return ModeDevelopment
	}
	return ModeProduction
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
