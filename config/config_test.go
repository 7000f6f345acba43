package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/propscout/propscout/internal/util"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// sandbox returns Options rooted in fresh home and work directories.
func sandbox(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()
	home := filepath.Join(root, "home")
	work := filepath.Join(root, "src", "project", "sub")
	require.NoError(t, os.MkdirAll(home, 0755))
	require.NoError(t, os.MkdirAll(work, 0755))
	return Options{HomeDir: home, WorkDir: work}
}

func TestLoadDefaults(t *testing.T) {
	res, err := Load(sandbox(t))
	require.NoError(t, err)

	cfg := res.Config
	assert.Equal(t, DefaultBackendURL, cfg.Backend.URL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout())
	require.NotNil(t, cfg.Backend.MaxRetries)
	assert.Equal(t, 2, *cfg.Backend.MaxRetries)
	assert.Equal(t, "127.0.0.1:8420", cfg.Server.Addr())
	assert.Equal(t, 7*24*time.Hour, cfg.Server.SessionTTL())
	assert.Empty(t, res.Files)
	assert.Equal(t, "default", res.Describe("backend.url"))
}

func TestLoadPrecedence(t *testing.T) {
	opts := sandbox(t)
	userFile := filepath.Join(opts.HomeDir, ".propscout", "config.toml")
	projectFile := filepath.Join(filepath.Dir(filepath.Dir(opts.WorkDir)), ProjectFileName)
	explicit := filepath.Join(t.TempDir(), "override.toml")

	writeFile(t, userFile, "[backend]\nurl = \"http://user:8000\"\ntimeout_seconds = 5\n[server]\npage_size = 10\n")
	writeFile(t, projectFile, "[backend]\nurl = \"http://project:8000\"\n[log]\nlevel = \"debug\"\n")
	writeFile(t, explicit, "[server]\npage_size = 50\n")
	opts.ConfigFile = explicit

	t.Run("files", func(t *testing.T) {
		res, err := Load(opts)
		require.NoError(t, err)
		assert.Equal(t, []string{userFile, projectFile, explicit}, res.Files)
		assert.Equal(t, "http://project:8000", res.Config.Backend.URL, "project overrides user")
		assert.Equal(t, 5, res.Config.Backend.TimeoutSeconds, "user value survives where project is silent")
		assert.Equal(t, 50, res.Config.Server.PageSize, "--config overrides user")
		assert.Equal(t, "debug", res.Config.Log.Level)
		assert.Equal(t, "project ("+projectFile+")", res.Describe("backend.url"))
	})

	t.Run("environment wins", func(t *testing.T) {
		t.Setenv("PROPSCOUT_BACKEND_URL", "https://env.example.com")
		res, err := Load(opts)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", res.Config.Backend.URL)
		assert.Equal(t, "environment (PROPSCOUT_BACKEND_URL)", res.Describe("backend.url"))
	})
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		opts := sandbox(t)
		opts.ConfigFile = filepath.Join(t.TempDir(), "nope.toml")
		_, err := Load(opts)
		assert.Error(t, err)
	})

	t.Run("malformed toml", func(t *testing.T) {
		opts := sandbox(t)
		writeFile(t, filepath.Join(opts.WorkDir, ProjectFileName), "[backend\nurl=")
		_, err := Load(opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})

	t.Run("invalid value", func(t *testing.T) {
		opts := sandbox(t)
		writeFile(t, filepath.Join(opts.WorkDir, ProjectFileName), "[server]\nport = 0\n")
		_, err := Load(opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.port cannot be 0")
	})
}

func validConfig() Config {
	return Config{
		Backend: BackendConfig{URL: "http://localhost:8000", TimeoutSeconds: 30, RateBurst: 1},
		Server:  ServerConfig{SessionCookie: "s", SessionTTLHours: 1, PageSize: 20},
		Log:     LogConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"ftp url", func(c *Config) { c.Backend.URL = "ftp://x" }, "backend.url"},
		{"no host", func(c *Config) { c.Backend.URL = "http://" }, "backend.url"},
		{"zero timeout", func(c *Config) { c.Backend.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"negative retries", func(c *Config) { c.Backend.MaxRetries = util.Ptr(-1) }, "max_retries"},
		{"zero retries allowed", func(c *Config) { c.Backend.MaxRetries = util.Ptr(0) }, ""},
		{"negative rate", func(c *Config) { c.Backend.RateLimit = -1 }, "rate_limit"},
		{"rate without burst", func(c *Config) { c.Backend.RateLimit = 5; c.Backend.RateBurst = 0 }, "rate_burst"},
		{"bad constraint", func(c *Config) { c.Backend.MinVersion = "not a version" }, "min_version"},
		{"port out of range", func(c *Config) { c.Server.Port = util.Ptr(70000) }, "server.port"},
		{"page size", func(c *Config) { c.Server.PageSize = 500 }, "page_size"},
		{"empty cookie", func(c *Config) { c.Server.SessionCookie = " " }, "session_cookie"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckBackendVersion(t *testing.T) {
	b := BackendConfig{MinVersion: ">= 1.2.0, < 2"}
	assert.NoError(t, b.CheckBackendVersion("1.4.2"))
	assert.Error(t, b.CheckBackendVersion("2.0.0"))
	assert.Error(t, b.CheckBackendVersion("banana"))
	assert.NoError(t, BackendConfig{}.CheckBackendVersion("anything"))
}

func TestRender(t *testing.T) {
	res, err := Load(sandbox(t))
	require.NoError(t, err)

	for _, format := range []string{FormatTOML, FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			out, err := res.Render(format)
			require.NoError(t, err)
			assert.Contains(t, string(out), "localhost:8000")
		})
	}
	_, err = res.Render("xml")
	assert.Error(t, err)

	settings := res.Settings()
	require.NotEmpty(t, settings)
	assert.Equal(t, "backend.max_retries", settings[0].Key)
}

func TestSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")

	require.NoError(t, Set(path, "backend.url", "http://api.local:9000"))
	require.NoError(t, Set(path, "server.page_size", ParseValue("40")))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.local:9000", cfg.Backend.URL)
	assert.Equal(t, 40, cfg.Server.PageSize)
	assert.FileExists(t, path+".back1")

	t.Run("unknown key", func(t *testing.T) {
		assert.Error(t, Set(path, "backend.colour", "blue"))
	})

	t.Run("invalid value is not written", func(t *testing.T) {
		before, _ := os.ReadFile(path)
		assert.Error(t, Set(path, "server.page_size", ParseValue("0")))
		after, _ := os.ReadFile(path)
		assert.Equal(t, before, after)
	})
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, ParseValue("true"))
	assert.Equal(t, int64(1), ParseValue("1"))
	assert.Equal(t, 2.5, ParseValue("2.5"))
	assert.Equal(t, "warn", ParseValue("warn"))
}

func TestWatcherReloads(t *testing.T) {
	opts := sandbox(t)
	project := filepath.Join(opts.WorkDir, ProjectFileName)
	writeFile(t, project, "[log]\nlevel = \"warn\"\n")

	res, err := Load(opts)
	require.NoError(t, err)

	w, err := NewWatcher(opts, res.Files, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	var level atomic.Value
	w.OnReload(func(c *Config) error {
		level.Store(c.Log.Level)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(project, []byte("[log]\nlevel = \"debug\"\n"), 0644))
	require.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "debug"
	}, 2*time.Second, 10*time.Millisecond)

	t.Run("backup files ignored", func(t *testing.T) {
		assert.True(t, isBackupFile(project+".back2"))
		assert.False(t, isBackupFile(strings.TrimSuffix(project, ".toml")))
	})
}
