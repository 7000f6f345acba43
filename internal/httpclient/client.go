// Package httpclient wraps http.Client with the retry, rate limiting and
// request-ID behaviour every backend call shares.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 2
	maxRedirects      = 10
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries *int          // nil = DefaultMaxRetries; 0 disables retries
	RetryDelay time.Duration // fixed pause between attempts
	RateLimit  float64       // requests per second; 0 = unlimited
	RateBurst  int
	UserAgent  string
	Logger     *zap.SugaredLogger

	// Observe is called once per attempt. status is 0 when the request
	// never produced a response.
	Observe func(method string, status int, elapsed time.Duration)

	// Transport overrides the default transport (tests).
	Transport http.RoundTripper
}

// Client sends requests to the backend.
//
// 4xx responses are returned as-is. 5xx responses and transport errors are
// retried up to MaxRetries times; the last 5xx response is returned to the
// caller so it can read the error body.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
	userAgent  string
	observe    func(string, int, time.Duration)
	log        *zap.SugaredLogger
}

// New creates a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	retries := DefaultMaxRetries
	if opts.MaxRetries != nil && *opts.MaxRetries >= 0 {
		retries = *opts.MaxRetries
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	c := &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: retries,
		retryDelay: opts.RetryDelay,
		userAgent:  opts.UserAgent,
		observe:    opts.Observe,
		log:        logger.OrNop(opts.Logger),
	}
	c.SetRateLimit(opts.RateLimit, opts.RateBurst)

	c.http.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.Newf("stopped after %d redirects", maxRedirects)
		}
		if err := validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	return c
}

// SetRateLimit changes the outgoing request rate. perSecond <= 0 removes the
// limit. Safe to call while requests are in flight.
func (c *Client) SetRateLimit(perSecond float64, burst int) {
	if burst < 1 {
		burst = 1
	}
	if perSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
	} else {
		c.limiter.SetLimit(rate.Limit(perSecond))
	}
	c.limiter.SetBurst(burst)
}

// MaxRetries returns the configured retry count.
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// Do sends req, retrying on 5xx and transport errors. Requests with a body
// must be created with a replayable body (bytes.Reader, strings.Reader) so
// http.NewRequest sets GetBody.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := validateURL(req.URL); err != nil {
		return nil, errors.Wrap(err, "request blocked")
	}

	ctx := req.Context()
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID := req.Header.Get(HeaderRequestID)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.pause(ctx); err != nil {
				return nil, err
			}
		}

		attemptReq, err := c.prepare(req, attempt)
		if err != nil {
			return nil, err
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}

		start := time.Now()
		resp, err := c.http.Do(attemptReq)
		elapsed := time.Since(start)

		if err != nil {
			c.record(req.Method, 0, elapsed)
			if ctx.Err() != nil {
				return nil, errors.Wrap(ctx.Err(), "request cancelled")
			}
			lastErr = err
			c.log.Debugw("backend request failed",
				logger.FieldRequestID, requestID,
				logger.FieldMethod, req.Method,
				logger.FieldPath, req.URL.Path,
				logger.FieldAttempt, attempt+1,
				logger.FieldError, err)
			continue
		}

		c.record(req.Method, resp.StatusCode, elapsed)
		c.log.Debugw("backend request",
			logger.FieldRequestID, requestID,
			logger.FieldMethod, req.Method,
			logger.FieldPath, req.URL.Path,
			logger.FieldStatus, resp.StatusCode,
			logger.FieldAttempt, attempt+1,
			logger.FieldDurationMS, elapsed.Milliseconds())

		if resp.StatusCode < http.StatusInternalServerError || attempt == c.maxRetries {
			return resp, nil
		}

		// Drain so the connection can be reused for the retry.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = errors.Newf("server returned %d", resp.StatusCode)
	}

	return nil, errors.Wrapf(errors.Mark(lastErr, errors.ErrServiceUnavailable),
		"%s %s failed after %d attempts", req.Method, req.URL.Path, c.maxRetries+1)
}

func (c *Client) prepare(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || req.Body == nil || req.Body == http.NoBody {
		return req, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed for retry")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, errors.Wrap(err, "failed to replay request body")
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func (c *Client) pause(ctx context.Context) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "request cancelled")
	case <-timer.C:
		return nil
	}
}

func (c *Client) record(method string, status int, elapsed time.Duration) {
	if c.observe != nil {
		c.observe(method, status, elapsed)
	}
}

// ValidateURL parses and checks a backend base URL.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := validateURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

func validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.Newf("scheme %q not allowed (allowed: http, https)", u.Scheme)
	}
	if u.User != nil {
		return errors.New("URL must not carry credentials")
	}
	if u.Hostname() == "" {
		return errors.New("URL missing hostname")
	}
	return nil
}
