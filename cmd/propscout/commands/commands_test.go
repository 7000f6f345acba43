package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/errors"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

const enrichBody = `{
  "success": true,
  "property_id": 12,
  "enrichment": {
    "success": true,
    "enrichment_data": {
      "walk_score_provider": {"success": true, "cached": true, "data": {"walk_score": 72, "walk_description": "Very Walkable"}},
      "flood_zone_provider": {"success": false, "cached": false, "data": null, "error": "timeout"}
    },
    "metadata": {"total_providers": 2, "successful_providers": 1, "failed_providers": 1, "total_api_calls": 1, "cached_providers": 1}
  },
  "cached": false,
  "message": "ok"
}`

// env is a temporary home with a config file pointing at a fake backend.
type env struct {
	config string
	home   string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"ok","version":"1.4.0"}`)
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"a1","refresh_token":"r1","token_type":"bearer",
			"user":{"id":1,"email":"`+creds.Email+`","first_name":"Ada","last_name":"Lovelace","is_active":true}}`)
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"id":1,"email":"ada@example.com","first_name":"Ada","last_name":"Lovelace","is_active":true}`)
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("GET /api/properties/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Austin", r.URL.Query().Get("city"))
		_, _ = io.WriteString(w, `{"properties":[{"id":12,"address":"12 Oak St","city":"Austin","price":450000}],"total":1,"page":1,"page_size":20}`)
	})
	mux.HandleFunc("GET /api/properties/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "12":
			_, _ = io.WriteString(w, `{"id":12,"address":"12 Oak St","city":"Austin","price":450000,"bedrooms":3}`)
		case "13":
			_, _ = io.WriteString(w, `{"id":13,"address":"9 Elm Ave","city":"Austin","price":520000,"bedrooms":4}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Property not found"}`)
		}
	})
	mux.HandleFunc("POST /api/properties/{id}/enrich", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, enrichBody)
	})
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PROPSCOUT_CALLER", "")

	cfg := filepath.Join(home, "test.toml")
	content := "[backend]\nurl = \"" + backend.URL + "\"\nmax_retries = 0\n\n" +
		"[database]\npath = \"" + filepath.ToSlash(filepath.Join(home, "propscout.db")) + "\"\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0o644))
	return &env{config: cfg, home: home}
}

// run executes one command line and returns stdout.
func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetArgs(append([]string{"--config", e.config}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func (e *env) login(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "hunter2\n", "login", "--email", "ada@example.com")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "version", "--json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
}

func TestLoginLifecycle(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "hunter2\n", "login", "--email", "ada@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Ada Lovelace")

	out, err = e.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace <ada@example.com>")

	out, err = e.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	_, err = e.run(t, "", "whoami")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	assert.Contains(t, errors.GetAllHints(err), "run `propscout login` first")

	out, err = e.run(t, "", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestLoginRejected(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "wrong\n", "login", "--email", "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	var buf bytes.Buffer
	PrintError(&buf, err)
	assert.Contains(t, buf.String(), "Incorrect email or password")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "one\ntwo\n", "register", "--email", "ada@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSearch(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "", "search", "--city", "Austin")
	require.Error(t, err, "search needs a login")

	e.login(t)
	out, err := e.run(t, "", "search", "--city", "Austin")
	require.NoError(t, err)
	assert.Contains(t, out, "12 Oak St")
	assert.Contains(t, out, "$450,000")
}

func TestShow(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	out, err := e.run(t, "", "show", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "12 Oak St")

	_, err = e.run(t, "", "show", "99")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))

	_, err = e.run(t, "", "show", "abc")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestEnrich(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	out, err := e.run(t, "", "enrich", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "Walkability")
	assert.Contains(t, out, "72 (Very Walkable)")
	assert.Contains(t, out, "1/2 providers succeeded, 1 cached")
	assert.NotContains(t, out, "Flood Zone")

	out, err = e.run(t, "", "enrich", "12", "--json")
	require.NoError(t, err)
	var report struct {
		PropertyID int64 `json:"property_id"`
		Sections   []struct {
			Kind   string `json:"kind"`
			Cached bool   `json:"cached"`
		} `json:"sections"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(12), report.PropertyID)
	require.Len(t, report.Sections, 1)
	assert.True(t, report.Sections[0].Cached)
}

func TestCompare(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	out, err := e.run(t, "", "compare", "12", "13")
	require.NoError(t, err)
	assert.Contains(t, out, "12 Oak St")
	assert.Contains(t, out, "9 Elm Ave")
	require.Contains(t, out, "Share code: ")

	code := strings.TrimSpace(out[strings.LastIndex(out, "Share code: ")+len("Share code: "):])
	again, err := e.run(t, "", "compare", "--code", code)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	_, err = e.run(t, "", "compare", "12")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = e.run(t, "", "compare", "--code", code, "12")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestConfigSetGet(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "config", "set", "backend.timeout_seconds", "45")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(e.home, ".propscout", "config.toml"))

	out, err = e.run(t, "", "config", "get", "backend.timeout_seconds")
	require.NoError(t, err)
	assert.Equal(t, "45\n", out)

	_, err = e.run(t, "", "config", "set", "backend.nope", "1")
	require.Error(t, err)

	_, err = e.run(t, "", "config", "get", "backend.nope")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestConfigShowSources(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "config", "show", "--sources", "--json")
	require.NoError(t, err)

	var settings []struct {
		Key    string `json:"key"`
		Source string `json:"source"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &settings))
	sources := map[string]string{}
	for _, s := range settings {
		sources[s.Key] = s.Source
	}
	assert.Equal(t, "file", sources["backend.url"])
	assert.Equal(t, "default", sources["server.page_size"])
}

func TestConfigValidate(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	require.NoError(t, os.WriteFile(e.config, []byte("[backend\nurl = "), 0o644))
	_, err = e.run(t, "", "config", "validate")
	require.Error(t, err)
}

func TestShell(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	in := "search --city Austin\nshow 99\nshell\n\"unterminated\nexit\nversion\n"
	out, err := e.run(t, in, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, shellPrompt)
	assert.Contains(t, out, "12 Oak St")
	assert.NotContains(t, out, "propscout dev", "lines after exit are not run")
}

func TestDoctor(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "doctor")
	require.Error(t, err, "not logged in")
	assert.Contains(t, out, "ok, version 1.4.0")
	assert.Contains(t, out, "not logged in")

	e.login(t)
	out, err = e.run(t, "", "doctor", "--json")
	require.NoError(t, err)
	var checks []check
	require.NoError(t, json.Unmarshal([]byte(out), &checks))
	require.NotEmpty(t, checks)
	for _, c := range checks {
		assert.True(t, c.OK, "%s: %s", c.Name, c.Detail)
	}
	assert.Equal(t, "ada@example.com", checks[len(checks)-1].Detail)
}
