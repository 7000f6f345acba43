package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/errors"
)

func (s *Server) handleSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.user(r).SavedProperties(r.Context())
	if err != nil {
		s.fail(w, r, "Saved properties", err)
		return
	}
	s.render(w, r, http.StatusOK, "saved", pageData{
		Title:  "Saved properties",
		Notice: r.URL.Query().Get("notice"),
		Data:   saved,
	})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.FormValue("property_id"), 10, 64)
	if err != nil || id <= 0 {
		s.fail(w, r, "Save property", errors.Wrapf(errors.ErrInvalidRequest, "invalid property id %q", r.FormValue("property_id")))
		return
	}
	if _, err := s.user(r).SaveProperty(r.Context(), id, strings.TrimSpace(r.FormValue("notes"))); err != nil {
		s.fail(w, r, "Save property", err)
		return
	}
	redirectNotice(w, r, "/properties/"+strconv.FormatInt(id, 10), "Saved to your list.")
}

func (s *Server) handleSavedNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, "Saved properties", err)
		return
	}
	if _, err := s.user(r).UpdateNotes(r.Context(), id, strings.TrimSpace(r.FormValue("notes"))); err != nil {
		s.fail(w, r, "Saved properties", err)
		return
	}
	redirectNotice(w, r, "/saved", "Notes updated.")
}

func (s *Server) handleUnsave(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, "Saved properties", err)
		return
	}
	if err := s.user(r).UnsaveProperty(r.Context(), id); err != nil {
		s.fail(w, r, "Saved properties", err)
		return
	}
	redirectNotice(w, r, "/saved", "Removed from your list.")
}

type preferencesForm struct {
	Prefs  *api.Preferences
	Cities string
	Types  string
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.user(r).Preferences(r.Context())
	if err != nil {
		s.fail(w, r, "Preferences", err)
		return
	}
	s.render(w, r, http.StatusOK, "preferences", pageData{
		Title:  "Preferences",
		Notice: r.URL.Query().Get("notice"),
		Data: preferencesForm{
			Prefs:  prefs,
			Cities: strings.Join(prefs.PreferredCities, ", "),
			Types:  strings.Join(prefs.PropertyTypes, ", "),
		},
	})
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	prefs := api.Preferences{
		MinPrice:           optionalFloat(r, "min_price"),
		MaxPrice:           optionalFloat(r, "max_price"),
		MinBedrooms:        optionalFloat(r, "min_bedrooms"),
		MinBathrooms:       optionalFloat(r, "min_bathrooms"),
		PreferredCities:    splitList(r.FormValue("preferred_cities")),
		PropertyTypes:      splitList(r.FormValue("property_types")),
		EmailNotifications: r.FormValue("email_notifications") != "",
	}
	if prefs.MinPrice != nil && prefs.MaxPrice != nil && *prefs.MinPrice > *prefs.MaxPrice {
		s.render(w, r, http.StatusBadRequest, "preferences", pageData{
			Title:  "Preferences",
			Banner: "Minimum price must not exceed maximum price.",
			Data: preferencesForm{
				Prefs:  &prefs,
				Cities: r.FormValue("preferred_cities"),
				Types:  r.FormValue("property_types"),
			},
		})
		return
	}
	if _, err := s.user(r).UpdatePreferences(r.Context(), prefs); err != nil {
		s.fail(w, r, "Preferences", err)
		return
	}
	redirectNotice(w, r, "/preferences", "Preferences saved.")
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.user(r).CustomLocations(r.Context())
	if err != nil {
		s.fail(w, r, "Custom locations", err)
		return
	}
	s.render(w, r, http.StatusOK, "locations", pageData{
		Title:  "Custom locations",
		Notice: r.URL.Query().Get("notice"),
		Data:   locs,
	})
}

func (s *Server) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	loc := api.CustomLocation{
		Name:      strings.TrimSpace(r.FormValue("name")),
		Address:   strings.TrimSpace(r.FormValue("address")),
		Latitude:  optionalCoordinate(r, "latitude"),
		Longitude: optionalCoordinate(r, "longitude"),
	}
	if _, err := s.user(r).AddCustomLocation(r.Context(), loc); err != nil {
		s.fail(w, r, "Custom locations", err)
		return
	}
	redirectNotice(w, r, "/locations", "Location added.")
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, "Custom locations", err)
		return
	}
	if err := s.user(r).DeleteCustomLocation(r.Context(), id); err != nil {
		s.fail(w, r, "Custom locations", err)
		return
	}
	redirectNotice(w, r, "/locations", "Location removed.")
}

// redirectNotice implements post/redirect/get with a one-line notice.
func redirectNotice(w http.ResponseWriter, r *http.Request, to, notice string) {
	http.Redirect(w, r, to+"?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// optionalCoordinate is optionalFloat without the sign restriction.
func optionalCoordinate(r *http.Request, name string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue(name)), 64)
	if err != nil {
		return nil
	}
	return &v
}
