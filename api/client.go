// Package api is the client for the listings backend REST API.
//
// Unauthenticated calls (login, register, health) live on Client. Calls made
// on behalf of a user go through a UserClient bound to that user's
// auth.Session; a 401 triggers one single-flight token refresh and one retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/internal/httpclient"
	"github.com/propscout/propscout/logger"
)

const (
	apiPrefix = "/api"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 8 << 20
)

// Client talks to one backend.
type Client struct {
	base *url.URL
	http *httpclient.Client
	log  *zap.SugaredLogger
}

// New creates a Client for baseURL (scheme and host, optionally a path
// prefix; "/api" is appended to it).
func New(baseURL string, hc *httpclient.Client, log *zap.SugaredLogger) (*Client, error) {
	u, err := httpclient.ValidateURL(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.WithHint(errors.Wrap(err, "invalid backend URL"),
			"set backend.url in propscout.toml or PROPSCOUT_BACKEND_URL")
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if hc == nil {
		hc = httpclient.New(httpclient.Options{Logger: log})
	}
	return &Client{base: u, http: hc, log: logger.OrNop(log)}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// HTTP returns the underlying transport client.
func (c *Client) HTTP() *httpclient.Client {
	return c.http
}

// User binds the client to a session.
func (c *Client) User(session *auth.Session) *UserClient {
	return &UserClient{c: c, session: session}
}

// UserClient makes calls on behalf of one session.
type UserClient struct {
	c       *Client
	session *auth.Session
}

// Session returns the bound session.
func (u *UserClient) Session() *auth.Session {
	return u.session
}

type call struct {
	op     string
	method string
	path   string
	query  url.Values
	body   interface{}
	out    interface{}
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = c.base.Path + apiPrefix + path
	u.RawQuery = query.Encode()
	return u.String()
}

// send performs one round trip. token may be empty.
func (c *Client) send(ctx context.Context, cl call, token string) (int, []byte, error) {
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return 0, nil, errors.Wrapf(err, "%s: encode request", cl.op)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.resolve(cl.path, cl.query), body)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "%s: build request", cl.op)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, cl.op)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, errors.Wrapf(err, "%s: read response", cl.op)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) finish(cl call, status int, data []byte) error {
	if status < 200 || status >= 300 {
		return newHTTPError(cl.op, status, data)
	}
	if cl.out == nil || status == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, cl.out); err != nil {
		return errors.Wrapf(err, "%s: decode response", cl.op)
	}
	return nil
}

// do performs an unauthenticated call.
func (c *Client) do(ctx context.Context, cl call) error {
	status, data, err := c.send(ctx, cl, "")
	if err != nil {
		return err
	}
	return c.finish(cl, status, data)
}

// do performs an authenticated call, refreshing the token once on 401.
func (u *UserClient) do(ctx context.Context, cl call) error {
	token := u.session.AccessToken()
	if token == "" {
		return errors.WithHint(errors.Wrap(errors.ErrUnauthorized, cl.op), "log in first")
	}

	status, data, err := u.c.send(ctx, cl, token)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		u.c.log.Debugw("Access token rejected, refreshing",
			logger.FieldSessionID, u.session.ID(),
			logger.FieldOperation, cl.op)

		fresh, err := u.session.Refresh(ctx, token, u.c.refresh)
		if err != nil {
			return errors.Wrap(err, cl.op)
		}
		status, data, err = u.c.send(ctx, cl, fresh)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			// A brand new token was rejected too: the account is gone or disabled.
			_ = u.session.Clear(ctx)
			return errors.Mark(newHTTPError(cl.op, status, data), errors.ErrSessionExpired)
		}
	}

	return u.c.finish(cl, status, data)
}

// refresh is the auth.RefreshFunc for this backend.
func (c *Client) refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	var resp AuthResponse
	err := c.do(ctx, call{
		op:     "refresh token",
		method: http.MethodPost,
		path:   "/auth/refresh",
		body:   map[string]string{"refresh_token": refreshToken},
		out:    &resp,
	})
	if err != nil {
		return auth.Tokens{}, err
	}
	if resp.AccessToken == "" {
		return auth.Tokens{}, errors.New("refresh response carried no access token")
	}
	return resp.Tokens, nil
}
