package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/propscout/propscout/errors"
)

// DefaultSessionTTL is how long an idle session record is kept.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Record is the persisted form of a Session.
type Record struct {
	ID        string
	User      *User
	Tokens    Tokens
	CreatedAt time.Time
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// TokenStore persists session records. Load returns errors.ErrNotFound for
// unknown or expired IDs.
type TokenStore interface {
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SQLStore keeps session records in the sessions table.
type SQLStore struct {
	db *sql.DB
}

var _ TokenStore = (*SQLStore)(nil)

// NewSQLStore creates a store over a migrated database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Load retrieves a session record by ID.
func (s *SQLStore) Load(ctx context.Context, id string) (Record, error) {
	var (
		rec      Record
		userJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_json, access_token, refresh_token, token_type, created_at, updated_at, expires_at
		 FROM sessions WHERE id = ? AND expires_at > ?`,
		id, time.Now().UTC(),
	).Scan(&rec.ID, &userJSON, &rec.Tokens.AccessToken, &rec.Tokens.RefreshToken, &rec.Tokens.TokenType,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt)

	if err == sql.ErrNoRows {
		return Record{}, errors.Wrapf(errors.ErrNotFound, "session %s", id)
	}
	if err != nil {
		return Record{}, errors.Wrap(err, "failed to get session")
	}

	if userJSON != "" {
		rec.User = &User{}
		if err := json.Unmarshal([]byte(userJSON), rec.User); err != nil {
			return Record{}, errors.Wrap(err, "failed to decode session user")
		}
	}
	return rec, nil
}

// Save inserts or replaces a session record.
func (s *SQLStore) Save(ctx context.Context, rec Record) error {
	var userJSON []byte
	if rec.User != nil {
		var err error
		if userJSON, err = json.Marshal(rec.User); err != nil {
			return errors.Wrap(err, "failed to encode session user")
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_json, access_token, refresh_token, token_type, created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   user_json = excluded.user_json,
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   token_type = excluded.token_type,
		   updated_at = excluded.updated_at,
		   expires_at = excluded.expires_at`,
		rec.ID, string(userJSON), rec.Tokens.AccessToken, rec.Tokens.RefreshToken, rec.Tokens.TokenType,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), rec.ExpiresAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "failed to save session")
	}
	return nil
}

// Delete removes a session record. Deleting an unknown ID is not an error.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

// DeleteExpired removes every record that expired before now.
func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up expired sessions")
	}
	return result.RowsAffected()
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

var _ TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok || !rec.ExpiresAt.After(time.Now()) {
		return Record{}, errors.Wrapf(errors.ErrNotFound, "session %s", id)
	}
	return rec, nil
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.records {
		if !rec.ExpiresAt.After(now) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}
