package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

var sslModes = []string{"disable", "require", "verify-ca", "verify-full"}

// DatabaseConfig holds the query engine connection settings. Namespace selects the
// PostgreSQL schema every statement runs in; Name selects the database.
type DatabaseConfig struct {
	Host      string `envconfig:"DB_HOST" required:"true"`
	Port      string `envconfig:"DB_PORT" default:"5432"`
	User      string `envconfig:"DB_USER" required:"true"`
	Password  string `envconfig:"DB_PASSWORD" required:"true"`
	Name      string `envconfig:"DB_NAME" required:"true"`
	Namespace string `envconfig:"DB_NAMESPACE" default:"edge_go"`
	SSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	Migrate   bool   `envconfig:"DB_MIGRATE" default:"true"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.User == "" {
		return fmt.Errorf("user cannot be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if c.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if c.MaxConns <= 0 {
		return fmt.Errorf("max connections must be positive")
	}
	if c.MinConns < 0 {
		return fmt.Errorf("min connections cannot be negative")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("min connections (%d) cannot be greater than max connections (%d)", c.MinConns, c.MaxConns)
	}
	if !slices.Contains(sslModes, c.SSLMode) {
		return fmt.Errorf("invalid SSL mode: %s (must be one of: disable, require, verify-ca, verify-full)", c.SSLMode)
	}
	return nil
}

// ConnectionString returns the PostgreSQL URL used by the connection pool.
// search_path pins every session to the configured namespace.
func (c *DatabaseConfig) ConnectionString() string {
	return c.url("postgres")
}

// MigrationURL returns the URL for the migrate pgx/v5 driver.
func (c *DatabaseConfig) MigrationURL() string {
	return c.url("pgx5")
}

func (c *DatabaseConfig) url(scheme string) string {
	q := url.Values{}
	q.Set("sslmode", c.SSLMode)
	q.Set("search_path", c.Namespace)

	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"` // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error

	// StrictCreateStatus makes POST /new-link answer failures with an error status
	// instead of 200.
	StrictCreateStatus bool `envconfig:"APP_STRICT_CREATE_STATUS" default:"false"`
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	if !slices.Contains([]string{"development", "staging", "production", "test"}, c.Environment) {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// ObservabilityConfig holds configuration for tracing and metrics.
type ObservabilityConfig struct {
	Enabled           bool    `envconfig:"OTEL_ENABLED" default:"false"`
	ServiceName       string  `envconfig:"OTEL_SERVICE_NAME" default:"edgelink"`
	ServiceVersion    string  `envconfig:"OTEL_SERVICE_VERSION" default:"dev"`
	OTelEndpoint      string  `envconfig:"OTEL_ENDPOINT"`
	OTelInsecure      bool    `envconfig:"OTEL_INSECURE"`
	TracingSampleRate float64 `envconfig:"OTEL_TRACING_SAMPLE_RATE" default:"1.0"`
	MetricsEnabled    bool    `envconfig:"METRICS_ENABLED" default:"true"`
}

// Validate validates the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1, got %f", c.TracingSampleRate)
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if c.Enabled && c.OTelEndpoint == "" {
		return fmt.Errorf("OTEL endpoint is required when tracing is enabled")
	}
	return nil
}

// Load loads configuration from environment variables only.
// (.env loading happens in the app package for development, not here.)
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name   string
		target any
		check  func() error
	}{
		{"Server", &cfg.Server, cfg.Server.Validate},
		{"Database", &cfg.Database, cfg.Database.Validate},
		{"App", &cfg.App, cfg.App.Validate},
		{"Observability", &cfg.Observability, cfg.Observability.Validate},
	}

	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.check(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	return cfg, nil
}
