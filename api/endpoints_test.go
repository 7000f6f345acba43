package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/enrichment"
	"github.com/propscout/propscout/errors"
)

const enrichBody = `{
  "success": true,
  "property_id": 12,
  "enrichment": {
    "success": true,
    "enrichment_data": {
      "walk_score_provider": {"success": true, "cached": true, "data": {"walk_score": 80, "walk_description": "Very Walkable"}, "error": null, "enriched_at": "2024-05-01T10:00:00.123456"},
      "flood_zone_provider": {"success": false, "cached": false, "data": null, "error": "timeout", "enriched_at": null}
    },
    "metadata": {"total_providers": 2, "successful_providers": 1, "failed_providers": 1, "total_api_calls": 1, "cached_providers": 1}
  },
  "cached": false,
  "message": "ok"
}`

func endpointsBackend(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1","token_type":"bearer","user":{"id":4,"email":"` + creds.Email + `","first_name":"Ada"}}`))
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1"}`))
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":5,"email":"new@example.com"}`))
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("GET /api/properties/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Austin", q.Get("city"))
		assert.Equal(t, "3", q.Get("min_bedrooms"))
		assert.False(t, q.Has("max_price"))
		_, _ = w.Write([]byte(`{"properties":null,"total":45,"page":1,"page_size":20}`))
	})
	mux.HandleFunc("POST /api/properties/{id}/enrich", func(w http.ResponseWriter, r *http.Request) {
		var req EnrichRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.ForceRefresh)
		_, _ = w.Write([]byte(enrichBody))
	})
	mux.HandleFunc("GET /api/saved-properties", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"property_id":12,"notes":"corner lot"}]`))
	})
	mux.HandleFunc("DELETE /api/saved-properties/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /api/preferences", func(w http.ResponseWriter, r *http.Request) {
		var p Preferences
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		_ = json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("GET /api/properties/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "404" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Property not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":` + r.PathValue("id") + `,"address":"` + r.PathValue("id") + ` Oak St"}`))
	})
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.4.2"}`))
	})
	return mux
}

func TestAuthEndpoints(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, endpointsBackend(t))

	t.Run("login stores tokens and user", func(t *testing.T) {
		s := auth.NewSession("", nil, time.Hour, nil)
		user, err := c.Login(ctx, s, Credentials{Email: " ada@example.com ", Password: "hunter2"})
		require.NoError(t, err)
		assert.Equal(t, "Ada", user.DisplayName())
		assert.Equal(t, "a1", s.AccessToken())
		assert.Equal(t, int64(4), s.User().ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		s := auth.NewSession("", nil, time.Hour, nil)
		_, err := c.Login(ctx, s, Credentials{Email: "ada@example.com", Password: "nope"})
		require.Error(t, err)
		assert.Equal(t, "Incorrect email or password", UserMessage(err))
		assert.False(t, s.Authenticated())
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := c.Login(ctx, auth.NewSession("", nil, 0, nil), Credentials{Email: "  "})
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	})

	t.Run("register without user fetches me", func(t *testing.T) {
		s := auth.NewSession("", nil, time.Hour, nil)
		user, err := c.Register(ctx, s, Registration{Email: "new@example.com", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, int64(5), user.ID)
		assert.Equal(t, "new@example.com", s.User().Email)
	})

	t.Run("logout clears even when backend fails", func(t *testing.T) {
		s := loggedIn(t, "a1", "r1")
		require.NoError(t, c.User(s).Logout(ctx))
		assert.False(t, s.Authenticated())
	})

	t.Run("health", func(t *testing.T) {
		h, err := c.Health(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1.4.2", h.Version)
	})
}

func TestPropertyEndpoints(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, endpointsBackend(t))
	uc := c.User(loggedIn(t, "a1", "r1"))

	res, err := uc.Search(ctx, SearchParams{City: "Austin", MinBedrooms: 3})
	require.NoError(t, err)
	assert.NotNil(t, res.Properties)
	assert.Equal(t, 3, res.Pages())

	resp, err := uc.Enrich(ctx, 12, EnrichRequest{ForceRefresh: true})
	require.NoError(t, err)
	rs := resp.Results()
	assert.True(t, rs.Succeeded(enrichment.ProviderWalkScore))
	assert.False(t, rs.Succeeded(enrichment.ProviderFloodZone))
	assert.Equal(t, 1, resp.Enrichment.Metadata.CachedProviders)

	saved, err := uc.SavedProperties(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "corner lot", saved[0].Notes)
	require.NoError(t, uc.UnsaveProperty(ctx, saved[0].ID))

	prefs, err := uc.UpdatePreferences(ctx, Preferences{PreferredCities: []string{"Austin"}, EmailNotifications: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Austin"}, prefs.PreferredCities)

	_, err = uc.AddCustomLocation(ctx, CustomLocation{Name: "Work"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestPropertiesKeepsOrder(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, endpointsBackend(t))
	uc := c.User(loggedIn(t, "a1", "r1"))

	props, err := uc.Properties(ctx, []int64{31, 7, 19, 2, 11})
	require.NoError(t, err)
	ids := make([]int64, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{31, 7, 19, 2, 11}, ids)

	_, err = uc.Properties(ctx, []int64{7, 404})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}
