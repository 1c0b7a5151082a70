package pictech

import (
	"errors"
	"fmt"
	"net/http"

	"image-translator-backend/internal/models"
)

const maxMessageLen = 256

// Error is the normalized form of every failure the adapter returns. Kind is one
// of the models sentinels (ErrAuth, ErrRateLimited, ErrUpstreamTransient,
// ErrMalformedResponse, ErrUpstreamBusiness) so callers can use errors.Is.
type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Code       int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pictech %s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether the failure is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, models.ErrUpstreamTransient) || errors.Is(err, models.ErrRateLimited)
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.ErrAuth
	case status == http.StatusTooManyRequests:
		return models.ErrRateLimited
	case status == http.StatusRequestTimeout || status >= http.StatusInternalServerError:
		return models.ErrUpstreamTransient
	default:
		return models.ErrUpstreamBusiness
	}
}

func truncate(s string) string {
	if len(s) <= maxMessageLen {
		return s
	}
	return s[:maxMessageLen] + "..."
}
