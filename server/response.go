package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// fail turns a request-level error into one page-level banner. Expired
// sessions go back to the login page instead.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, title string, err error) {
	if errors.Is(err, errors.ErrSessionExpired) || errors.Is(err, errors.ErrUnauthorized) {
		s.auth.ClearCookie(w)
		http.Redirect(w, r, s.auth.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.IsNotFoundError(err):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errors.ErrConflict):
		status = http.StatusConflict
	}

	s.log.Warnw("Request failed",
		logger.FieldMethod, r.Method,
		logger.FieldPath, r.URL.Path,
		"backend_status", api.StatusCode(err),
		logger.FieldError, err)

	s.render(w, r, status, "error", pageData{Title: title, Banner: api.UserMessage(err)})
}

// user returns a backend client for the request's session. Routes using it
// sit behind RequireSession.
func (s *Server) user(r *http.Request) *api.UserClient {
	return s.backend.User(auth.SessionFromContext(r.Context()))
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Wrapf(errors.ErrInvalidRequest, "invalid %s %q", name, r.PathValue(name))
	}
	return id, nil
}

// optionalFloat parses a form value; blank or unparsable means unset.
func optionalFloat(r *http.Request, name string) *float64 {
	v, err := strconv.ParseFloat(r.FormValue(name), 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if len(next) == 0 || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return "/"
	}
	return next
}
