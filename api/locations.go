package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/propscout/propscout/errors"
)

// CustomLocations lists the user's custom locations.
func (u *UserClient) CustomLocations(ctx context.Context) ([]CustomLocation, error) {
	locs := []CustomLocation{}
	if err := u.do(ctx, call{op: "list custom locations", method: http.MethodGet, path: "/custom-locations", out: &locs}); err != nil {
		return nil, err
	}
	return locs, nil
}

// AddCustomLocation creates a custom location. The backend geocodes the
// address when no coordinates are given.
func (u *UserClient) AddCustomLocation(ctx context.Context, loc CustomLocation) (*CustomLocation, error) {
	loc.Name = strings.TrimSpace(loc.Name)
	loc.Address = strings.TrimSpace(loc.Address)
	if loc.Name == "" || loc.Address == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "name and address are required")
	}
	if (loc.Latitude == nil) != (loc.Longitude == nil) {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "latitude and longitude must be given together")
	}

	var out CustomLocation
	err := u.do(ctx, call{op: "add custom location", method: http.MethodPost, path: "/custom-locations", body: loc, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCustomLocation removes a custom location.
func (u *UserClient) DeleteCustomLocation(ctx context.Context, id int64) error {
	return u.do(ctx, call{
		op:     "delete custom location",
		method: http.MethodDelete,
		path:   "/custom-locations/" + strconv.FormatInt(id, 10),
	})
}
