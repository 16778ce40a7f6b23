// Package config provides application configuration loaded from environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Auth     AuthConfig
	Expiry   ExpiryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string `env:"PORT" env-default:"8080"`
	ReadTimeout  int    `env:"SERVER_READ_TIMEOUT" env-default:"15"` // seconds
	WriteTimeout int    `env:"SERVER_WRITE_TIMEOUT" env-default:"15"`
	IdleTimeout  int    `env:"SERVER_IDLE_TIMEOUT" env-default:"60"`
}

// DatabaseConfig holds connection settings for postgres or sqlite.
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" env-default:"postgres"`
	Host       string `env:"DB_HOST" env-default:"localhost"`
	Port       int    `env:"DB_PORT" env-default:"5432"`
	User       string `env:"DB_USER" env-default:"eventdesk"`
	Password   string `env:"DB_PASSWORD" env-default:"eventdesk"`
	DBName     string `env:"DB_NAME" env-default:"eventdesk"`
	SSLMode    string `env:"DB_SSLMODE" env-default:"disable"`
	SQLitePath string `env:"DB_SQLITE_PATH" env-default:"eventdesk.db"`
	Debug      bool   `env:"DB_DEBUG" env-default:"false"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev           bool   `env:"DEV" env-default:"false"`
	Migrations    bool   `env:"MIGRATIONS" env-default:"false"`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" env-default:"http://localhost:3000"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" env-default:"24h"`
	RoleCacheTTL time.Duration `env:"ROLE_CACHE_TTL" env-default:"5m"`
}

// ExpiryConfig holds the poll expiry sweep settings.
type ExpiryConfig struct {
	SweepInterval time.Duration `env:"EXPIRY_SWEEP_INTERVAL" env-default:"30s"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// MaxSweepInterval bounds how long expired rows may linger on disk.
	MaxSweepInterval = 60 * time.Second

	devJWTSecret = "dev-insecure-secret"
)

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if cfg.Auth.JWTSecret == "" && cfg.App.Dev {
		cfg.Auth.JWTSecret = devJWTSecret
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("config: unknown DB_DRIVER %q", c.Database.Driver))
	}
	if c.Expiry.SweepInterval <= 0 || c.Expiry.SweepInterval > MaxSweepInterval {
		errs = append(errs, fmt.Errorf("config: EXPIRY_SWEEP_INTERVAL must be in (0, %s]", MaxSweepInterval))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("config: JWT_SECRET is required outside dev mode"))
	}
	return errors.Join(errs...)
}
