// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Matching MatchingConfig
	Store    StoreConfig
	Session  SessionConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds table upload and conversion settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed table size in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of parallel conversions (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// MatchingConfig holds field matcher settings.
type MatchingConfig struct {
	// Method is the similarity strategy: fuzzy or semantic (default: fuzzy)
	Method string `env:"MATCH_METHOD" default:"fuzzy"`

	// Assignment is the conflict resolution: optimal or legacy (default: optimal)
	Assignment string `env:"MATCH_ASSIGNMENT" default:"optimal"`

	// MinScore is the lowest similarity accepted as a match, 0-1 (default: 0)
	MinScore float64 `env:"MATCH_MIN_SCORE" default:"0"`

	// OptionalMinScore is the lowest similarity at which an optional field
	// claims a column, 0-1 (default: 0.5)
	OptionalMinScore float64 `env:"MATCH_OPTIONAL_MIN_SCORE" default:"0.5"`

	// APIKey is the credential for the semantic strategy
	APIKey string `env:"MATCH_API_KEY" envAlt:"GOOGLE_API_KEY"`

	// Model is the generative model used by the semantic strategy
	Model string `env:"MATCH_MODEL" default:"gemini-2.0-flash"`

	// Timeout bounds a single semantic scoring call (default: 20s)
	Timeout time.Duration `env:"MATCH_TIMEOUT" default:"20s"`
}

// StoreConfig holds panel persistence settings.
type StoreConfig struct {
	// Backend is one of memory, file, postgres, redis (default: file)
	Backend string `env:"STORE_BACKEND" default:"file"`

	// Dir is the directory for the file backend (default: saved_panels)
	Dir string `env:"STORE_DIR" default:"saved_panels"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// RedisAddr is the address for the redis backend (default: localhost:6379)
	RedisAddr string `env:"REDIS_ADDR" default:"localhost:6379"`

	// RedisPassword is the password for the redis backend
	RedisPassword string `env:"REDIS_PASSWORD"`

	// RedisDB is the database index for the redis backend (default: 0)
	RedisDB int `env:"REDIS_DB" default:"0"`

	// KeyPrefix namespaces panel keys in redis (default: pmo:panel:)
	KeyPrefix string `env:"STORE_KEY_PREFIX" default:"pmo:panel:"`
}

// SessionConfig holds web session settings.
type SessionConfig struct {
	// TTL is how long an idle session keeps its sections (default: 2h)
	TTL time.Duration `env:"SESSION_TTL" default:"2h"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key authentication for /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
