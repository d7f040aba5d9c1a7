package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors returned by the cloud client. Authentication failures all wrap
// ErrAuth, so callers can test for the whole family with errors.Is.
var (
	ErrAuth = errors.New("cloud: authentication failed")

	// ErrNoCredentials is returned when email or password is not configured.
	ErrNoCredentials = fmt.Errorf("%w: no credentials configured", ErrAuth)

	// ErrInvalidCredentials is returned when the login endpoint rejects the account.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuth)

	// ErrInvalidPIN is returned when client verification rejects the PIN.
	ErrInvalidPIN = fmt.Errorf("%w: invalid verification PIN", ErrAuth)

	// ErrVerificationRequired is returned when the account demands a PIN and none is configured.
	ErrVerificationRequired = fmt.Errorf("%w: client verification required but no PIN configured", ErrAuth)

	// ErrTransport wraps connection-level failures.
	ErrTransport = errors.New("cloud: transport failure")

	// ErrRetriesExhausted is returned when 5xx or 429 responses persist past the retry ceiling.
	ErrRetriesExhausted = errors.New("cloud: retries exhausted")

	// ErrUnsupported is returned for operations a device variant does not offer.
	ErrUnsupported = errors.New("cloud: operation not supported by device")

	// ErrNotJSON is returned when decoding a response whose body is not JSON.
	ErrNotJSON = errors.New("cloud: response is not JSON")
)

// HTTPError is a 4xx response other than 401 and 429.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

// Error implements error.
func (e *HTTPError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("cloud: %s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("cloud: %s %s: status %d", e.Method, e.Path, e.Status)
}

// Message returns the "message" field of a JSON error body, or the raw body
// when it is short plain text.
func (e *HTTPError) Message() string {
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(e.Body, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	if len(e.Body) > 0 && len(e.Body) <= 200 && !json.Valid(e.Body) {
		return string(e.Body)
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
