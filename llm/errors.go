package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType is the normalized category of a provider error.
type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypePermission     ErrorType = "permission"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeBadRequest     ErrorType = "bad_request"
	ErrorTypeServer         ErrorType = "server"
	ErrorTypeAPI            ErrorType = "api"
)

// Error is a provider-neutral API error. Provider clients map transport and
// API failures into this type so callers can branch on Type regardless of
// which provider produced the failure.
type Error struct {
	Type        ErrorType
	Message     string
	StatusCode  int
	Retryable   bool
	RetryAfter  *time.Duration
	ProviderErr error
}

func (e *Error) Error() string {
	if e.ProviderErr != nil {
		return e.Message + ": " + e.ProviderErr.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.ProviderErr
}

// NewAPIError maps an HTTP status code to a normalized error. Unrecognized
// codes fall back to ErrorTypeAPI.
func NewAPIError(statusCode int, message string, providerErr error) *Error {
	var typ ErrorType
	retryable := false
	switch {
	case statusCode == 401:
		typ = ErrorTypeAuthentication
	case statusCode == 403:
		typ = ErrorTypePermission
	case statusCode == 404:
		typ = ErrorTypeNotFound
	case statusCode == 429:
		typ = ErrorTypeRateLimit
		retryable = true
	case statusCode >= 400 && statusCode < 500:
		typ = ErrorTypeBadRequest
	case statusCode >= 500:
		typ = ErrorTypeServer
		retryable = true
	default:
		typ = ErrorTypeAPI
	}
	return &Error{
		Type:        typ,
		Message:     message,
		StatusCode:  statusCode,
		Retryable:   retryable,
		ProviderErr: providerErr,
	}
}

// IsRateLimitError reports whether err is a normalized rate limit error.
func IsRateLimitError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == ErrorTypeRateLimit
	}
	return false
}

// IsRetryableError reports whether err is safe to retry.
func IsRetryableError(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// ExtractRetryAfter returns the retry-after hint carried by a rate limit
// error, or nil.
func ExtractRetryAfter(err error) *time.Duration {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return nil
}

// FeatureNotSupportedError is returned at encode time when a request asks for
// a capability the targeted model does not have. It is never raised for
// degradations the library can transparently absorb; silent downgrades of an
// explicitly requested feature are a bug.
type FeatureNotSupportedError struct {
	Feature    string
	ProviderID string
	ModelID    string
}

func (e *FeatureNotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by %s model %q", e.Feature, e.ProviderID, e.ModelID)
}

// IsFeatureNotSupported reports whether err wraps a FeatureNotSupportedError.
func IsFeatureNotSupported(err error) bool {
	var fns *FeatureNotSupportedError
	return errors.As(err, &fns)
}
