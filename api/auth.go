package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/errors"
)

// Login exchanges credentials for tokens and stores them, with the user, in
// session.
func (c *Client) Login(ctx context.Context, session *auth.Session, creds Credentials) (*auth.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "email and password are required")
	}

	var resp AuthResponse
	err := c.do(ctx, call{op: "login", method: http.MethodPost, path: "/auth/login", body: creds, out: &resp})
	if err != nil {
		return nil, err
	}
	return c.establish(ctx, session, resp)
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, session *auth.Session, reg Registration) (*auth.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	if reg.Email == "" || reg.Password == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "email and password are required")
	}

	var resp AuthResponse
	err := c.do(ctx, call{op: "register", method: http.MethodPost, path: "/auth/register", body: reg, out: &resp})
	if err != nil {
		return nil, err
	}
	return c.establish(ctx, session, resp)
}

func (c *Client) establish(ctx context.Context, session *auth.Session, resp AuthResponse) (*auth.User, error) {
	if resp.AccessToken == "" {
		return nil, errors.New("backend returned no access token")
	}
	if resp.TokenType == "" {
		resp.TokenType = "bearer"
	}

	user := resp.User
	if err := session.Login(ctx, user, resp.Tokens); err != nil {
		return nil, errors.Wrap(err, "failed to store session")
	}
	if user == nil {
		// Older backends return tokens only.
		me, err := c.User(session).Me(ctx)
		if err != nil {
			return nil, err
		}
		user = me
	}
	return user, nil
}

// Me fetches the current user and caches it on the session.
func (u *UserClient) Me(ctx context.Context) (*auth.User, error) {
	var user auth.User
	if err := u.do(ctx, call{op: "get current user", method: http.MethodGet, path: "/auth/me", out: &user}); err != nil {
		return nil, err
	}
	if err := u.session.SetUser(ctx, &user); err != nil {
		return nil, errors.Wrap(err, "failed to store session")
	}
	return &user, nil
}

// Logout tells the backend (best effort) and clears the session.
func (u *UserClient) Logout(ctx context.Context) error {
	if u.session.Authenticated() {
		if err := u.do(ctx, call{op: "logout", method: http.MethodPost, path: "/auth/logout"}); err != nil {
			u.c.log.Debugw("Backend logout failed", "error", err)
		}
	}
	return u.session.Clear(ctx)
}

// Health reports backend status and version.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, call{op: "health", method: http.MethodGet, path: "/health", out: &h}); err != nil {
		return nil, err
	}
	return &h, nil
}
