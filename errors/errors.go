// Package errors provides error handling for propscout.
//
// This package re-exports github.com/cockroachdb/errors, so every error
// created or wrapped in propscout carries a stack trace and can carry
// user-facing hints:
//
//	if err := client.Login(ctx, email, password); err != nil {
//	    return errors.Wrap(err, "login failed")
//	}
//
//	return errors.WithHint(ErrSessionExpired, "run `propscout login` again")
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark

	CombineErrors = crdb.CombineErrors
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
	GetStack  = crdb.GetReportableStackTrace
)

// Sentinel errors shared by the API client, the web frontend and the CLI.
// Wrap them with Wrap/Wrapf to add context; test them with Is.
var (
	// ErrNotFound indicates the backend has no such resource (404)
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates the backend rejected the request (400/422)
	ErrInvalidRequest = New("invalid request")

	// ErrUnauthorized indicates missing or rejected credentials (401)
	ErrUnauthorized = New("unauthorized")

	// ErrForbidden indicates the user may not perform the operation (403)
	ErrForbidden = New("forbidden")

	// ErrConflict indicates a duplicate resource, e.g. a property saved twice (409)
	ErrConflict = New("resource conflict")

	// ErrServiceUnavailable indicates the backend failed or could not be reached (5xx)
	ErrServiceUnavailable = New("service unavailable")

	// ErrSessionExpired indicates the refresh token was rejected and the session was cleared
	ErrSessionExpired = New("session expired")

	// ErrInvalidPayload indicates a provider payload did not match its schema
	ErrInvalidPayload = New("invalid provider payload")
)

// IsNotFoundError reports whether err is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsAuthError reports whether err means the user has to log in again.
func IsAuthError(err error) bool {
	return err != nil && IsAny(err, ErrUnauthorized, ErrSessionExpired)
}

// NewInvalidPayloadError creates an ErrInvalidPayload with a formatted message
func NewInvalidPayloadError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidPayload, Newf(format, args...).Error())
}
