// Package server is the propscout web frontend. It renders HTML pages from
// backend API calls made on behalf of each browser's session; it owns no
// listings data.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/db"
	"github.com/propscout/propscout/enrichment"
	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// Timeouts for the HTTP server.
const (
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 10 * time.Second

	// sessionSweepInterval is how often expired sessions are purged.
	sessionSweepInterval = 15 * time.Minute
)

// Options configure a Server.
type Options struct {
	Backend       *api.Client
	Sessions      *auth.Manager
	Registry      *enrichment.Registry // nil = enrichment.DefaultRegistry()
	Metrics       *Metrics             // nil = no instrumentation
	Gatherer      prometheus.Gatherer  // served on /metrics; nil = default gatherer
	CookieName    string
	SecureCookies bool
	PageSize      int
	Version       string
	Logger        *zap.SugaredLogger
}

// Server serves the web frontend.
type Server struct {
	backend  *api.Client
	sessions *auth.Manager
	auth     *auth.Middleware
	registry *enrichment.Registry
	metrics  *Metrics
	gatherer prometheus.Gatherer
	pages    *pages
	log      *zap.SugaredLogger
	version  string

	mu       sync.RWMutex
	pageSize int

	handler    http.Handler
	httpServer *http.Server
	wg         sync.WaitGroup
}

// New wires a Server. Backend and Sessions are required.
func New(opts Options) (*Server, error) {
	if opts.Backend == nil || opts.Sessions == nil {
		return nil, errors.New("server requires a backend client and a session manager")
	}
	log := logger.OrNop(opts.Logger).With(logger.FieldComponent, "server")

	registry := opts.Registry
	if registry == nil {
		registry = enrichment.DefaultRegistry()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}

	p, err := loadPages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		backend:  opts.Backend,
		sessions: opts.Sessions,
		auth:     auth.NewMiddleware(opts.Sessions, opts.CookieName, opts.SecureCookies, log),
		registry: registry,
		metrics:  opts.Metrics,
		gatherer: gatherer,
		pages:    p,
		log:      log,
		version:  opts.Version,
		pageSize: opts.PageSize,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetPageSize changes the search page size (config reload).
func (s *Server) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.pageSize = n
	s.mu.Unlock()
}

func (s *Server) currentPageSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageSize
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sweepSessions(sweepCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("Server ready", logger.FieldAddress, ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		stopSweep()
		s.wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
	}

	s.log.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	stopSweep()
	s.wg.Wait()
	if err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "failed to listen on %s", addr),
			"choose another port with --port or server.port")
	}
	return s.Serve(ctx, ln)
}

func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.auth.Prune(time.Now())
			n, err := s.sessions.Cleanup(ctx)
			if db.IsDatabaseClosed(err) {
				return
			}
			if err != nil {
				s.log.Warnw("Session cleanup failed", logger.FieldError, err)
				continue
			}
			if n > 0 {
				s.log.Debugw("Expired sessions removed", logger.FieldCount, n)
			}
		}
	}
}
