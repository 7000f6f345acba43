package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/logger"
)

const healthTimeout = 3 * time.Second

type healthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	Backend        string `json:"backend"`
	BackendVersion string `json:"backend_version,omitempty"`
}

// handleHealth reports the frontend and whether the backend answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Version: s.version, Backend: "ok"}
	status := http.StatusOK
	if h, err := s.backend.Health(ctx); err != nil {
		resp.Status, resp.Backend = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		resp.BackendVersion = h.Version
	}
	_ = writeJSON(w, status, resp)
}

type authForm struct {
	Next      string
	Email     string
	FirstName string
	LastName  string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Log in", Data: authForm{Next: r.URL.Query().Get("next")}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := authForm{Next: r.FormValue("next"), Email: strings.TrimSpace(r.FormValue("email"))}
	creds := api.Credentials{Email: form.Email, Password: r.FormValue("password")}

	session := s.freshSession(r)
	user, err := s.backend.Login(r.Context(), session, creds)
	if err != nil {
		_ = s.sessions.Destroy(r.Context(), session.ID())
		s.render(w, r, statusFor(err), "login", pageData{Title: "Log in", Banner: api.UserMessage(err), Data: form})
		return
	}

	s.log.Infow("User logged in", logger.FieldUserID, user.ID, logger.FieldSessionID, session.ID())
	s.auth.SetCookie(w, session)
	http.Redirect(w, r, safeNext(form.Next), http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", pageData{Title: "Create account", Data: authForm{}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form := authForm{
		Email:     strings.TrimSpace(r.FormValue("email")),
		FirstName: strings.TrimSpace(r.FormValue("first_name")),
		LastName:  strings.TrimSpace(r.FormValue("last_name")),
	}
	if r.FormValue("password") != r.FormValue("confirm_password") {
		s.render(w, r, http.StatusBadRequest, "register", pageData{Title: "Create account", Banner: "Passwords do not match.", Data: form})
		return
	}

	session := s.freshSession(r)
	_, err := s.backend.Register(r.Context(), session, api.Registration{
		Email:     form.Email,
		Password:  r.FormValue("password"),
		FirstName: form.FirstName,
		LastName:  form.LastName,
	})
	if err != nil {
		_ = s.sessions.Destroy(r.Context(), session.ID())
		s.render(w, r, statusFor(err), "register", pageData{Title: "Create account", Banner: api.UserMessage(err), Data: form})
		return
	}

	s.auth.SetCookie(w, session)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session := auth.SessionFromContext(r.Context()); session != nil {
		if err := s.backend.User(session).Logout(r.Context()); err != nil {
			s.log.Debugw("Logout failed", logger.FieldError, err)
		}
		_ = s.sessions.Destroy(r.Context(), session.ID())
	}
	s.auth.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// freshSession drops any session the browser already had and starts a new
// one, so a login never reuses an ID chosen before authentication.
func (s *Server) freshSession(r *http.Request) *auth.Session {
	if old := auth.SessionFromContext(r.Context()); old != nil {
		_ = s.sessions.Destroy(r.Context(), old.ID())
	}
	return s.sessions.New()
}

func statusFor(err error) int {
	if code := api.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	if code := api.StatusCode(err); code >= 500 {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}
