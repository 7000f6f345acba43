// Package auth holds the backend credentials of one logged-in user.
//
// A Session is passed explicitly to whatever needs to call the backend. It
// owns the token pair and guards refresh with a single-flight group, so
// concurrent requests that hit 401 share one refresh call instead of racing.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// User is the account record returned by the backend.
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// DisplayName returns the user's full name, or the email when no name is set.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Tokens is the backend's bearer token pair.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RefreshFunc exchanges a refresh token for a new token pair. An empty
// RefreshToken in the result keeps the old one.
type RefreshFunc func(ctx context.Context, refreshToken string) (Tokens, error)

// Session is one user's authentication state. Safe for concurrent use.
type Session struct {
	id    string
	store TokenStore
	ttl   time.Duration
	log   *zap.SugaredLogger

	mu        sync.RWMutex
	user      *User
	tokens    Tokens
	createdAt time.Time
	expiresAt time.Time

	refresh singleflight.Group

	// storeMu orders writes to the store so a late Touch cannot bring back a
	// record that Clear deleted.
	storeMu sync.Mutex
}

// NewSession creates an empty, unauthenticated session. A nil store keeps the
// session in memory only; ttl <= 0 means DefaultSessionTTL.
func NewSession(id string, store TokenStore, ttl time.Duration, log *zap.SugaredLogger) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := time.Now()
	return &Session{
		id:        id,
		store:     store,
		ttl:       ttl,
		log:       logger.OrNop(log),
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

func sessionFromRecord(rec Record, store TokenStore, ttl time.Duration, log *zap.SugaredLogger) *Session {
	s := NewSession(rec.ID, store, ttl, log)
	s.user = rec.User
	s.tokens = rec.Tokens
	s.createdAt = rec.CreatedAt
	s.expiresAt = rec.ExpiresAt
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// User returns the logged-in user, or nil.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// AccessToken returns the current bearer token, or "".
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

// Authenticated reports whether the session holds an access token.
func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

// ExpiresAt returns when the local session record expires.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Expired reports whether the local session record has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// Login stores a fresh token pair and user and persists them.
func (s *Session) Login(ctx context.Context, user *User, tokens Tokens) error {
	s.mu.Lock()
	s.user = user
	s.tokens = tokens
	s.expiresAt = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return s.persist(ctx)
}

// SetUser replaces the cached user without touching tokens.
func (s *Session) SetUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	return s.persist(ctx)
}

// Clear drops user and tokens and removes the persisted record.
func (s *Session) Clear(ctx context.Context) error {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	s.mu.Lock()
	s.user = nil
	s.tokens = Tokens{}
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx, s.id)
}

// Touch extends the local expiry by the session TTL.
func (s *Session) Touch(ctx context.Context) error {
	s.mu.Lock()
	s.expiresAt = time.Now().Add(s.ttl)
	s.mu.Unlock()
	return s.persist(ctx)
}

// Refresh obtains a new access token after the backend rejected stale.
//
// When another caller already replaced stale, the current token is returned
// without calling fn. Otherwise concurrent callers share a single call to fn.
// If fn fails, or there is no refresh token, the session is cleared and
// ErrSessionExpired is returned.
func (s *Session) Refresh(ctx context.Context, stale string, fn RefreshFunc) (string, error) {
	s.mu.RLock()
	current := s.tokens.AccessToken
	refreshToken := s.tokens.RefreshToken
	s.mu.RUnlock()

	if current != "" && current != stale {
		return current, nil
	}
	if refreshToken == "" {
		s.expire(ctx, errors.New("no refresh token"))
		return "", errors.WithHint(errors.ErrSessionExpired, "log in again")
	}

	v, err, shared := s.refresh.Do(refreshToken, func() (interface{}, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		ctx := context.WithoutCancel(ctx)
		tokens, err := fn(ctx, refreshToken)
		if err != nil {
			s.expire(ctx, err)
			return "", errors.WithHint(errors.Mark(errors.Wrap(err, "token refresh failed"), errors.ErrSessionExpired), "log in again")
		}

		s.mu.Lock()
		if tokens.RefreshToken == "" {
			tokens.RefreshToken = refreshToken
		}
		if tokens.TokenType == "" {
			tokens.TokenType = s.tokens.TokenType
		}
		s.tokens = tokens
		s.expiresAt = time.Now().Add(s.ttl)
		s.mu.Unlock()

		if err := s.persist(ctx); err != nil {
			s.log.Warnw("Failed to persist refreshed tokens",
				logger.FieldSessionID, s.id,
				logger.FieldError, err)
		}
		s.log.Debugw("Access token refreshed", logger.FieldSessionID, s.id)
		return tokens.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		s.log.Debugw("Joined in-flight token refresh", logger.FieldSessionID, s.id)
	}
	return v.(string), nil
}

func (s *Session) expire(ctx context.Context, cause error) {
	s.log.Infow("Session expired",
		logger.FieldSessionID, s.id,
		logger.FieldError, cause)
	if err := s.Clear(ctx); err != nil {
		s.log.Warnw("Failed to delete expired session",
			logger.FieldSessionID, s.id,
			logger.FieldError, err)
	}
}

// Record returns a snapshot suitable for persistence.
func (s *Session) Record() Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Record{
		ID:        s.id,
		User:      s.user,
		Tokens:    s.tokens,
		CreatedAt: s.createdAt,
		UpdatedAt: time.Now(),
		ExpiresAt: s.expiresAt,
	}
}

func (s *Session) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	rec := s.Record()
	if rec.Tokens.AccessToken == "" {
		return s.store.Delete(ctx, s.id)
	}
	return s.store.Save(ctx, rec)
}
