package api

import (
	"context"
	"net/http"
	"strconv"
)

// SavedProperties lists the user's saved properties.
func (u *UserClient) SavedProperties(ctx context.Context) ([]SavedProperty, error) {
	saved := []SavedProperty{}
	err := u.do(ctx, call{op: "list saved properties", method: http.MethodGet, path: "/saved-properties", out: &saved})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SaveProperty adds a property to the saved list.
func (u *UserClient) SaveProperty(ctx context.Context, propertyID int64, notes string) (*SavedProperty, error) {
	var saved SavedProperty
	err := u.do(ctx, call{
		op:     "save property",
		method: http.MethodPost,
		path:   "/saved-properties",
		body:   map[string]interface{}{"property_id": propertyID, "notes": notes},
		out:    &saved,
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateNotes replaces the notes on a saved property.
func (u *UserClient) UpdateNotes(ctx context.Context, savedID int64, notes string) (*SavedProperty, error) {
	var saved SavedProperty
	err := u.do(ctx, call{
		op:     "update saved property notes",
		method: http.MethodPut,
		path:   "/saved-properties/" + strconv.FormatInt(savedID, 10),
		body:   map[string]string{"notes": notes},
		out:    &saved,
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// UnsaveProperty removes a saved property.
func (u *UserClient) UnsaveProperty(ctx context.Context, savedID int64) error {
	return u.do(ctx, call{
		op:     "remove saved property",
		method: http.MethodDelete,
		path:   "/saved-properties/" + strconv.FormatInt(savedID, 10),
	})
}
