// Package config loads service configuration from the environment.
//
// A .env file in the working directory is applied first (existing
// environment variables win), then the environment is bound onto Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers accepted by DatabaseConfig.Driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the root configuration of the credential service.
type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Database  DatabaseConfig
	Session   SessionConfig
	Hasher    HasherConfig
	Shutdown  ShutdownConfig
}

type ServiceConfig struct {
	Name    string `env:"SERVICE_NAME" envDefault:"credential-service"`
	Version string `env:"SERVICE_VERSION" envDefault:"dev"`
	Env     string `env:"ENV" envDefault:"development"`
	Port    string `env:"PORT" envDefault:"8080"`
}

type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type TracingConfig struct {
	Enabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	Endpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

type ProfilingConfig struct {
	Enabled  bool   `env:"PROFILING_ENABLED" envDefault:"false"`
	Endpoint string `env:"PYROSCOPE_ENDPOINT"`
}

type DatabaseConfig struct {
	Driver     string `env:"STORE_DRIVER" envDefault:"postgres"`
	URL        string `env:"DATABASE_URL"`
	MaxConns   int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"var/credential.db"`
}

// SessionConfig controls the session store horizon and the cookie that
// carries the session token.
type SessionConfig struct {
	CookieName   string `env:"SESSION_COOKIE_NAME" envDefault:"qid"`
	CookieDomain string `env:"SESSION_COOKIE_DOMAIN"`
	// CookieSecure is nil when unset so it can default from Service.Env.
	CookieSecure  *bool         `env:"SESSION_COOKIE_SECURE"`
	TTL           time.Duration `env:"SESSION_TTL" envDefault:"87600h"`
	PurgeInterval time.Duration `env:"SESSION_PURGE_INTERVAL" envDefault:"1h"`
}

// HasherConfig holds argon2id parameters and the bound on concurrent
// hash computations.
type HasherConfig struct {
	Time        uint32 `env:"HASH_TIME" envDefault:"1"`
	MemoryKiB   uint32 `env:"HASH_MEMORY_KIB" envDefault:"65536"`
	Threads     uint32 `env:"HASH_THREADS" envDefault:"4"`
	Concurrency int64  `env:"HASH_CONCURRENCY" envDefault:"4"`
}

type ShutdownConfig struct {
	Timeout             time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReadinessDrainDelay time.Duration `env:"READINESS_DRAIN_DELAY" envDefault:"0s"`
}

// Load reads .env (if present) and binds the environment onto a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Service.Env, "production")
}

// SecureCookies reports whether the session cookie carries the Secure flag.
func (c *Config) SecureCookies() bool {
	if c.Session.CookieSecure != nil {
		return *c.Session.CookieSecure
	}
	return c.IsProduction()
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Service.Port); err != nil || port <= 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %q is not a valid port", c.Service.Port))
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
		if c.Database.MaxConns <= 0 {
			errs = append(errs, errors.New("DATABASE_MAX_CONNS must be positive"))
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of postgres, sqlite, memory", c.Database.Driver))
	}

	if c.Session.CookieName == "" {
		errs = append(errs, errors.New("SESSION_COOKIE_NAME must not be empty"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.Session.PurgeInterval < 0 {
		errs = append(errs, errors.New("SESSION_PURGE_INTERVAL must not be negative"))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATE %v is outside [0,1]", c.Tracing.SampleRate))
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when tracing is enabled"))
	}
	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		errs = append(errs, errors.New("PYROSCOPE_ENDPOINT is required when profiling is enabled"))
	}

	// argon2 refuses zero passes, zero or >255 lanes, and less than 8 KiB per lane.
	if c.Hasher.Time == 0 {
		errs = append(errs, errors.New("HASH_TIME must be at least 1"))
	}
	if c.Hasher.Threads == 0 || c.Hasher.Threads > 255 {
		errs = append(errs, fmt.Errorf("HASH_THREADS %d is outside 1..255", c.Hasher.Threads))
	} else if c.Hasher.MemoryKiB < 8*c.Hasher.Threads {
		errs = append(errs, fmt.Errorf("HASH_MEMORY_KIB %d is below 8*HASH_THREADS", c.Hasher.MemoryKiB))
	}
	if c.Hasher.Concurrency <= 0 {
		errs = append(errs, errors.New("HASH_CONCURRENCY must be positive"))
	}

	if c.Shutdown.Timeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}
