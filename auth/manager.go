package auth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// CLISessionID is the fixed session the command line uses.
const CLISessionID = "cli"

// Manager hands out Sessions by ID, loading them from the store on first use
// and keeping them in memory so all requests of one browser share the same
// Session (and its refresh guard).
type Manager struct {
	store TokenStore
	ttl   time.Duration
	log   *zap.SugaredLogger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. ttl <= 0 means DefaultSessionTTL.
func NewManager(store TokenStore, ttl time.Duration, log *zap.SugaredLogger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		store:    store,
		ttl:      ttl,
		log:      logger.OrNop(log),
		sessions: make(map[string]*Session),
	}
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// New creates an unauthenticated session with a random ID. It is persisted
// on its first Login.
func (m *Manager) New() *Session {
	s := NewSession("", m.store, m.ttl, m.log)
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

// Get returns the session for id, or errors.ErrNotFound when it does not
// exist or has expired.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, errors.Wrap(errors.ErrNotFound, "empty session id")
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		if s.Expired(time.Now()) {
			m.evict(id)
			return nil, errors.Wrapf(errors.ErrNotFound, "session %s expired", id)
		}
		return s, nil
	}

	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have loaded it meanwhile.
	if existing, ok := m.sessions[id]; ok {
		return existing, nil
	}
	s = sessionFromRecord(rec, m.store, m.ttl, m.log)
	m.sessions[id] = s
	return s, nil
}

// Open returns the session for id, creating an empty one with that ID when
// none is stored.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	s, err := m.Get(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.IsNotFoundError(err) {
		return nil, err
	}
	s = NewSession(id, m.store, m.ttl, m.log)
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Destroy clears the session and forgets it.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		return s.Clear(ctx)
	}
	return m.store.Delete(ctx, id)
}

// Cleanup drops expired sessions from memory and from the store.
func (m *Manager) Cleanup(ctx context.Context) (int64, error) {
	now := time.Now()
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	n, err := m.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.log.Infow("Removed expired sessions", logger.FieldCount, n)
	}
	return n, nil
}

// Len returns the number of sessions held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) evict(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
