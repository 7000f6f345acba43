package api

import (
	"context"
	"net/http"
)

// Preferences fetches the user's preferences.
func (u *UserClient) Preferences(ctx context.Context) (*Preferences, error) {
	var prefs Preferences
	if err := u.do(ctx, call{op: "get preferences", method: http.MethodGet, path: "/preferences", out: &prefs}); err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdatePreferences replaces the user's preferences and returns the stored
// version.
func (u *UserClient) UpdatePreferences(ctx context.Context, prefs Preferences) (*Preferences, error) {
	var out Preferences
	err := u.do(ctx, call{op: "update preferences", method: http.MethodPut, path: "/preferences", body: prefs, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
