package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	// Host defaults to loopback: the core serves the desktop shell on the
	// same machine and is never exposed on an external interface.
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	// Source is either a sqlite file path ("data/clinical.db") or a
	// postgres DSN ("postgres://...") for shared-site installs.
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type SecurityConfig struct {
	// KeyFile holds the master encryption key, created on first run with
	// 0600 permissions.
	KeyFile            string        `mapstructure:"key_file"`
	SessionSecret      string        `mapstructure:"session_secret"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	BCryptCost         int           `mapstructure:"bcrypt_cost"`
	// Permissions optionally overrides the built-in role permission table.
	// Keys are role names, values are "action:resource" pairs. Unknown
	// roles, actions or resources are rejected at startup.
	Permissions map[string][]string `mapstructure:"permissions"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	DefaultSessionIdleTimeout = 30 * time.Minute
	DefaultBCryptCost         = 12
	DefaultKeyFile            = "data/encryption.key"
)

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}
	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}
	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReadTimeout != 0 && c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// IsPostgres reports whether the configured source is a postgres DSN.
// Anything else is treated as a sqlite file path.
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.Source, "postgres://") || strings.HasPrefix(c.Source, "postgresql://")
}

func (c *SecurityConfig) Validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 characters")
	}
	if c.SessionIdleTimeout < 0 {
		return errors.New("session_idle_timeout cannot be negative")
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 10 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

// IdleTimeout returns the configured session idle timeout or the default.
func (c *SecurityConfig) IdleTimeout() time.Duration {
	if c.SessionIdleTimeout == 0 {
		return DefaultSessionIdleTimeout
	}
	return c.SessionIdleTimeout
}

func (c *SecurityConfig) Cost() int {
	if c.BCryptCost == 0 {
		return DefaultBCryptCost
	}
	return c.BCryptCost
}

func (c *SecurityConfig) KeyFilePath() string {
	if c.KeyFile == "" {
		return DefaultKeyFile
	}
	return c.KeyFile
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}
