package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/propscout/propscout/errors"
)

// HTTPError is a non-2xx backend response. It never carries the raw body,
// only the backend's detail message or a short snippet.
type HTTPError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "backend http error"
	}
	msg := fmt.Sprintf("%s: backend returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps the status code onto the shared sentinel errors.
func (e *HTTPError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return errors.ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return errors.ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return errors.ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return errors.ErrConflict
	case e.StatusCode >= 500:
		return errors.ErrServiceUnavailable
	case e.StatusCode >= 400:
		return errors.ErrInvalidRequest
	}
	return nil
}

// Message is the text shown to users in banners and CLI errors.
func (e *HTTPError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.StatusCode >= 500 {
		return "The service is temporarily unavailable. Please try again."
	}
	return http.StatusText(e.StatusCode)
}

// StatusCode returns the backend status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// UserMessage returns a message suitable for a page-level banner.
func UserMessage(err error) string {
	var he *HTTPError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &he):
		return he.Message()
	case errors.Is(err, errors.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, errors.ErrServiceUnavailable):
		return "The service is temporarily unavailable. Please try again."
	case errors.Is(err, errors.ErrInvalidRequest):
		if hints := errors.GetAllHints(err); len(hints) > 0 {
			return sentence(hints[0])
		}
		return "The request was not valid."
	default:
		return "Something went wrong. Please try again."
	}
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

// errorEnvelope is the backend's error body. detail is a string for most
// errors and a list of field errors for validation failures.
type errorEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldError struct {
	Loc []interface{} `json:"loc"`
	Msg string        `json:"msg"`
}

func newHTTPError(op string, status int, body []byte) *HTTPError {
	return &HTTPError{Op: op, StatusCode: status, Detail: parseDetail(body)}
}

func parseDetail(body []byte) string {
	var env errorEnvelope
	if len(body) == 0 || json.Unmarshal(body, &env) != nil || len(env.Detail) == 0 {
		return snippet(body)
	}

	var s string
	if json.Unmarshal(env.Detail, &s) == nil {
		return strings.TrimSpace(s)
	}

	var fields []fieldError
	if json.Unmarshal(env.Detail, &fields) == nil {
		msgs := make([]string, 0, len(fields))
		for _, f := range fields {
			if name := fieldName(f.Loc); name != "" {
				msgs = append(msgs, name+": "+f.Msg)
			} else {
				msgs = append(msgs, f.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return snippet(body)
}

// fieldName drops the leading "body"/"query" location.
func fieldName(loc []interface{}) string {
	if len(loc) == 0 {
		return ""
	}
	last := fmt.Sprint(loc[len(loc)-1])
	if len(loc) == 1 && (last == "body" || last == "query") {
		return ""
	}
	return last
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if strings.HasPrefix(s, "<") {
		// HTML error pages from proxies say nothing useful.
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
