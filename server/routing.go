package server

import (
	"bufio"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// routes builds the handler tree. Pages that call the backend on behalf of a
// user require a session; everything goes through auth.Load.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	protect := func(h http.HandlerFunc) http.Handler { return s.auth.RequireSession(h) }

	// Public
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /logout", s.handleLogout)

	// Properties
	mux.Handle("GET /{$}", protect(s.handleSearch))
	mux.Handle("GET /properties/{id}", protect(s.handleProperty))
	mux.Handle("POST /properties/{id}/enrich", protect(s.handleEnrich))
	mux.Handle("GET /ws/enrich/{id}", protect(s.handleEnrichSocket))
	mux.Handle("GET /compare", protect(s.handleCompare))
	mux.Handle("GET /compare/{code}", protect(s.handleCompareCode))

	// Account
	mux.Handle("GET /saved", protect(s.handleSaved))
	mux.Handle("POST /saved", protect(s.handleSave))
	mux.Handle("POST /saved/{id}/notes", protect(s.handleSavedNotes))
	mux.Handle("POST /saved/{id}/delete", protect(s.handleUnsave))
	mux.Handle("GET /preferences", protect(s.handlePreferences))
	mux.Handle("POST /preferences", protect(s.handleUpdatePreferences))
	mux.Handle("GET /locations", protect(s.handleLocations))
	mux.Handle("POST /locations", protect(s.handleAddLocation))
	mux.Handle("POST /locations/{id}/delete", protect(s.handleDeleteLocation))

	return s.logRequests(s.auth.Load(mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack is required for the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debugw("HTTP request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, rec.status,
			logger.FieldDurationMS, time.Since(start).Milliseconds())
	})
}
