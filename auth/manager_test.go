package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/propscout/propscout/errors"
)

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("loads persisted sessions once", func(t *testing.T) {
		store := NewMemoryStore()
		m := NewManager(store, time.Hour, zaptest.NewLogger(t).Sugar())

		s := m.New()
		require.NoError(t, s.Login(ctx, &User{ID: 1}, Tokens{AccessToken: "a"}))

		// a fresh manager over the same store, as after a restart
		m2 := NewManager(store, time.Hour, nil)
		got, err := m2.Get(ctx, s.ID())
		require.NoError(t, err)
		assert.Equal(t, "a", got.AccessToken())

		again, err := m2.Get(ctx, s.ID())
		require.NoError(t, err)
		assert.Same(t, got, again)
	})

	t.Run("unknown id", func(t *testing.T) {
		m := NewManager(nil, 0, nil)
		_, err := m.Get(ctx, "missing")
		assert.True(t, errors.IsNotFoundError(err))
		_, err = m.Get(ctx, "")
		assert.True(t, errors.IsNotFoundError(err))
		assert.Equal(t, DefaultSessionTTL, m.TTL())
	})

	t.Run("open creates named session", func(t *testing.T) {
		m := NewManager(nil, 0, nil)
		s, err := m.Open(ctx, CLISessionID)
		require.NoError(t, err)
		assert.Equal(t, CLISessionID, s.ID())
		assert.False(t, s.Authenticated())

		same, err := m.Open(ctx, CLISessionID)
		require.NoError(t, err)
		assert.Same(t, s, same)
	})

	t.Run("destroy", func(t *testing.T) {
		store := NewMemoryStore()
		m := NewManager(store, time.Hour, nil)
		s := m.New()
		require.NoError(t, s.Login(ctx, nil, Tokens{AccessToken: "a"}))

		require.NoError(t, m.Destroy(ctx, s.ID()))
		assert.False(t, s.Authenticated())
		_, err := m.Get(ctx, s.ID())
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("cleanup evicts expired", func(t *testing.T) {
		m := NewManager(nil, 10*time.Millisecond, nil)
		s := m.New()
		require.NoError(t, s.Login(ctx, nil, Tokens{AccessToken: "a"}))
		assert.Equal(t, 1, m.Len())

		time.Sleep(20 * time.Millisecond)
		n, err := m.Cleanup(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, 0, m.Len())
	})
}

func TestMiddleware(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, time.Hour, nil)
	mw := NewMiddleware(m, "", false, zaptest.NewLogger(t).Sugar())

	session := m.New()
	require.NoError(t, session.Login(ctx, &User{ID: 3}, Tokens{AccessToken: "tok"}))

	protected := mw.Load(mw.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := SessionFromContext(r.Context())
		require.NotNil(t, s)
		assert.True(t, IsAuthenticated(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	})))

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/saved", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: session.ID()})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("no cookie redirects to login", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/saved?sort=price", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fsaved%3Fsort%3Dprice", rec.Header().Get("Location"))
	})

	t.Run("stale cookie is cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/saved", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "gone"})
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("activity is pruned after the window", func(t *testing.T) {
		other := m.New()
		require.NoError(t, other.Login(ctx, &User{ID: 4}, Tokens{AccessToken: "tok"}))
		for _, id := range []string{session.ID(), other.ID()} {
			req := httptest.NewRequest(http.MethodGet, "/saved", nil)
			req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: id})
			protected.ServeHTTP(httptest.NewRecorder(), req)
		}
		assert.Equal(t, 2, activityEntries(mw))

		assert.Zero(t, mw.Prune(time.Now()))
		assert.Equal(t, 2, mw.Prune(time.Now().Add(mw.activityWindow)))
		assert.Zero(t, activityEntries(mw))
	})

	t.Run("set cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mw.SetCookie(rec, session)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, session.ID(), cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	assert.Equal(t, "/login", mw.LoginURL("/"))
}

func activityEntries(mw *Middleware) int {
	mw.activityMu.Lock()
	defer mw.activityMu.Unlock()
	return len(mw.lastActivity)
}
