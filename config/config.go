// Package config loads propscout settings from TOML files and PROPSCOUT_*
// environment variables.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the complete propscout configuration.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// BackendConfig points at the listings backend.
type BackendConfig struct {
	URL            string  `mapstructure:"url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     *int    `mapstructure:"max_retries"` // nil = default 2, 0 disables retries
	RetryDelayMS   int     `mapstructure:"retry_delay_ms"`
	RateLimit      float64 `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst      int     `mapstructure:"rate_burst"`
	MinVersion     string  `mapstructure:"min_version"` // semver constraint, e.g. ">= 1.2"
}

// Timeout returns the per-request timeout.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// RetryDelay returns the pause between retries.
func (b BackendConfig) RetryDelay() time.Duration {
	return time.Duration(b.RetryDelayMS) * time.Millisecond
}

// ServerConfig configures the web frontend.
type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            *int   `mapstructure:"port"` // nil = DefaultServerPort, 0 is invalid
	SessionCookie   string `mapstructure:"session_cookie"`
	SecureCookies   bool   `mapstructure:"secure_cookies"`
	SessionTTLHours int    `mapstructure:"session_ttl_hours"`
	PageSize        int    `mapstructure:"page_size"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	port := DefaultServerPort
	if s.Port != nil {
		port = *s.Port
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// SessionTTL returns the local session lifetime.
func (s ServerConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLHours) * time.Hour
}

// DatabaseConfig configures the session token database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

const (
	DefaultServerPort = 8420
	DefaultBackendURL = "http://localhost:8000"

	// EnvPrefix is prepended to upper-cased keys, e.g. PROPSCOUT_BACKEND_URL.
	EnvPrefix = "PROPSCOUT"

	// ProjectFileName is searched for upward from the working directory.
	ProjectFileName = "propscout.toml"
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
