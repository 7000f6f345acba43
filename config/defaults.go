package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Backend
	v.SetDefault("backend.url", DefaultBackendURL)
	v.SetDefault("backend.timeout_seconds", 30)
	v.SetDefault("backend.max_retries", 2)
	v.SetDefault("backend.retry_delay_ms", 0)
	v.SetDefault("backend.rate_limit", 0.0) // unlimited
	v.SetDefault("backend.rate_burst", 10)
	v.SetDefault("backend.min_version", "")

	// Web frontend
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.session_cookie", "propscout_session")
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.session_ttl_hours", 24*7)
	v.SetDefault("server.page_size", 20)

	v.SetDefault("database.path", defaultDatabasePath())

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "warn")
}

func defaultDatabasePath() string {
	dir := UserDir()
	if dir == "" {
		return "propscout.db"
	}
	return filepath.Join(dir, "propscout.db")
}
