package models

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrConflict            = errors.New("conflict")

	// Upstream errors. ErrUpstreamSubmit wraps whatever the adapter returned
	// when a submit call fails synchronously.
	ErrUpstreamSubmit    = errors.New("upstream submit failed")
	ErrUpstreamTransient = errors.New("upstream transient error")
	ErrUpstreamBusiness  = errors.New("upstream rejected request")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrRateLimited       = errors.New("upstream rate limited")
	ErrAuth              = errors.New("upstream authentication failed")
)

// Error kinds recorded in ErrorInfo.Kind.
const (
	KindUpstreamTransient = "UpstreamTransientError"
	KindUpstreamBusiness  = "UpstreamBusinessError"
	KindMalformedResponse = "MalformedResponseError"
	KindAuth              = "AuthError"
	KindRateLimit         = "RateLimitError"
	KindStorage           = "StorageError"
)

// ErrorKind names the taxonomy entry for err, or "" when it has none.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamSubmit):
		return "UpstreamSubmitError"
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrRateLimited):
		return KindRateLimit
	case errors.Is(err, ErrUpstreamTransient):
		return KindUpstreamTransient
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrUpstreamBusiness):
		return KindUpstreamBusiness
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInputError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrInsufficientCredits):
		return "InsufficientCreditsError"
	case errors.Is(err, ErrConflict):
		return "ConflictError"
	}
	return ""
}
