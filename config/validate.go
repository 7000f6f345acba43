package config

import (
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(strings.TrimSpace(c.Backend.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Newf("backend.url must be an http(s) URL, got %q", c.Backend.URL)
	}
	if c.Backend.TimeoutSeconds <= 0 {
		return errors.Newf("backend.timeout_seconds must be > 0, got %d", c.Backend.TimeoutSeconds)
	}
	if c.Backend.MaxRetries != nil && *c.Backend.MaxRetries < 0 {
		return errors.Newf("backend.max_retries must be >= 0, got %d", *c.Backend.MaxRetries)
	}
	if c.Backend.RetryDelayMS < 0 {
		return errors.Newf("backend.retry_delay_ms must be >= 0, got %d", c.Backend.RetryDelayMS)
	}
	// 0 = unlimited
	if c.Backend.RateLimit < 0 {
		return errors.Newf("backend.rate_limit must be >= 0, got %g", c.Backend.RateLimit)
	}
	if c.Backend.RateLimit > 0 && c.Backend.RateBurst <= 0 {
		return errors.Newf("backend.rate_burst must be > 0 when rate_limit is set, got %d", c.Backend.RateBurst)
	}
	if _, err := c.Backend.VersionConstraint(); err != nil {
		return err
	}

	if c.Server.Port != nil && *c.Server.Port == 0 {
		return errors.Newf("server.port cannot be 0 (omit for default port %d)", DefaultServerPort)
	}
	if c.Server.Port != nil && (*c.Server.Port < 0 || *c.Server.Port > 65535) {
		return errors.Newf("server.port must be between 1 and 65535, got %d", *c.Server.Port)
	}
	if c.Server.SessionTTLHours <= 0 {
		return errors.Newf("server.session_ttl_hours must be > 0, got %d", c.Server.SessionTTLHours)
	}
	if c.Server.PageSize <= 0 || c.Server.PageSize > 100 {
		return errors.Newf("server.page_size must be between 1 and 100, got %d", c.Server.PageSize)
	}
	if strings.TrimSpace(c.Server.SessionCookie) == "" {
		return errors.New("server.session_cookie cannot be empty")
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// VersionConstraint parses MinVersion. A nil constraint means any version.
func (b BackendConfig) VersionConstraint() (*semver.Constraints, error) {
	if strings.TrimSpace(b.MinVersion) == "" {
		return nil, nil
	}
	c, err := semver.NewConstraint(b.MinVersion)
	if err != nil {
		return nil, errors.Wrapf(err, "backend.min_version %q is not a valid semver constraint", b.MinVersion)
	}
	return c, nil
}

// CheckBackendVersion reports whether the backend version satisfies
// MinVersion.
func (b BackendConfig) CheckBackendVersion(version string) error {
	constraint, err := b.VersionConstraint()
	if err != nil || constraint == nil {
		return err
	}
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return errors.Wrapf(err, "backend reported invalid version %q", version)
	}
	if !constraint.Check(v) {
		return errors.Newf("backend %s does not satisfy backend.min_version %s", v, b.MinVersion)
	}
	return nil
}
