package auth

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/propscout/propscout/db"
	"github.com/propscout/propscout/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const sessionContextKey contextKey = "auth_session"

// DefaultCookieName names the browser session cookie.
const DefaultCookieName = "propscout_session"

// Middleware resolves the session cookie into a Session on the request
// context.
type Middleware struct {
	manager    *Manager
	cookieName string
	secure     bool
	loginPath  string
	logger     *zap.SugaredLogger

	// Activity update debouncing
	activityMu     sync.Mutex
	lastActivity   map[string]time.Time
	activityWindow time.Duration
}

// NewMiddleware creates cookie session middleware.
func NewMiddleware(manager *Manager, cookieName string, secure bool, log *zap.SugaredLogger) *Middleware {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Middleware{
		manager:        manager,
		cookieName:     cookieName,
		secure:         secure,
		loginPath:      "/login",
		logger:         logger.OrNop(log),
		lastActivity:   make(map[string]time.Time),
		activityWindow: 5 * time.Minute, // Only extend expiry every 5 minutes per session
	}
}

// Load attaches the session named by the cookie, if any, and passes through.
func (m *Middleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.manager.Get(r.Context(), cookie.Value)
		if err != nil {
			m.logger.Debugw("Ignoring unknown session cookie", logger.FieldError, err)
			m.ClearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		if session.Authenticated() {
			m.touchSession(r.Context(), session)
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
	})
}

// RequireSession redirects to the login page unless the request carries an
// authenticated session. Must run after Load.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := SessionFromContext(r.Context()); s != nil && s.Authenticated() {
			next.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, m.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
	})
}

// LoginURL returns the login path with a return location.
func (m *Middleware) LoginURL(next string) string {
	if next == "" || next == "/" {
		return m.loginPath
	}
	return m.loginPath + "?next=" + url.QueryEscape(next)
}

// SetCookie points the browser at session.
func (m *Middleware) SetCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    session.ID(),
		Path:     "/",
		Expires:  session.ExpiresAt(),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (m *Middleware) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// touchSession extends the session expiry with debouncing
func (m *Middleware) touchSession(ctx context.Context, session *Session) {
	m.activityMu.Lock()
	defer m.activityMu.Unlock()

	lastUpdate, ok := m.lastActivity[session.ID()]
	if ok && time.Since(lastUpdate) < m.activityWindow {
		return
	}
	m.lastActivity[session.ID()] = time.Now()

	// Persist in background to not block request
	go func() {
		err := session.Touch(context.WithoutCancel(ctx))
		if db.IsDatabaseClosed(err) {
			return
		}
		if err != nil {
			m.logger.Warnw("Failed to update session activity",
				logger.FieldSessionID, session.ID(),
				logger.FieldError, err)
		}
	}()
}

// Prune forgets sessions whose last recorded activity is older than the
// debounce window and returns how many it dropped.
func (m *Middleware) Prune(now time.Time) int {
	m.activityMu.Lock()
	defer m.activityMu.Unlock()

	dropped := 0
	for id, last := range m.lastActivity {
		if now.Sub(last) >= m.activityWindow {
			delete(m.lastActivity, id)
			dropped++
		}
	}
	return dropped
}

// WithSession returns a context carrying session.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}

// SessionFromContext returns the request's session, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

// IsAuthenticated checks if the request has a logged-in session
func IsAuthenticated(ctx context.Context) bool {
	s := SessionFromContext(ctx)
	return s != nil && s.Authenticated()
}
