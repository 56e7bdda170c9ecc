// Package config loads roster server and CLI settings from environment
// variables, applying defaults and validating everything up front.
//
// Field tags:
//
//	env:"NAME"         variable to read
//	envAlt:"NAME"      fallback variable
//	default:"value"    used when neither variable is set
//	required:"true"    unset is an error
//	unit:"bytes"       integer accepts a KiB/MiB/GiB (or KB/MB/GB) suffix
//	validate:"..."     go-playground/validator rules, checked by Validate
//
// Rules that span fields (rate limits when enabled, the pool and history
// when a database is configured, API keys when auth is required) are
// struct-level validators in loader.go.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	History  HistoryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080" validate:"gte=1,lte=65535"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s" validate:"gte=0"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s" validate:"gte=0"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for
	// in-flight loads (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	// RequestTimeout is the middleware timeout for non-load requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s" validate:"gte=0"`
}

// CatalogConfig says where the item catalog comes from.
type CatalogConfig struct {
	// Source is a file path or an http(s) URL (default: EAItems.txt)
	Source string `env:"CATALOG_SOURCE" default:"EAItems.txt" validate:"nonblank"`

	// FetchTimeout bounds one catalog fetch (default: 10s)
	FetchTimeout time.Duration `env:"CATALOG_FETCH_TIMEOUT" default:"10s" validate:"gt=0"`

	// MaxSize caps the catalog body in bytes (default: 8MiB)
	MaxSize int64 `env:"CATALOG_MAX_SIZE" default:"8MiB" unit:"bytes" validate:"gt=0"`
}

// UploadConfig holds save document load settings.
type UploadConfig struct {
	// MaxFileSize is the maximum save document size in bytes (default: 64MiB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"64MiB" unit:"bytes" validate:"gt=0"`

	// MaxConcurrent is the maximum number of loads parsing at once (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4" validate:"gt=0"`

	// MaxWaitTime is how long a load waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s" validate:"gt=0"`

	// Timeout bounds a single load, catalog fetch included (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m" validate:"gt=0"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`

	// UploadLimit is loads per minute per IP (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info" validate:"oneofci=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text" validate:"oneofci=text json"`
}

// DatabaseConfig holds the optional history database.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables load history.
	// Supports both DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a history database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// HistoryConfig holds load history retention settings.
type HistoryConfig struct {
	// Retention is how long load history is kept (default: 720h)
	Retention time.Duration `env:"HISTORY_RETENTION" default:"720h"`

	// CheckInterval is how often the pruner runs (default: 1h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"1h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
