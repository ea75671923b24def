package openrouter

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned before any network I/O when the request
	// breaks an invariant (empty model, no messages, unknown role).
	ErrInvalidRequest = errors.New("openrouter: invalid request")

	// ErrCredential wraps any failure to obtain the API key.
	ErrCredential = errors.New("openrouter: resolve API key")

	// ErrMissingAPIKey is returned when the configured key source yields no key.
	ErrMissingAPIKey = errors.New("openrouter: API key is empty")

	// ErrResponseTooLarge is returned when a 2xx body exceeds the read cap.
	ErrResponseTooLarge = errors.New("openrouter: response too large")
)

// RequestFailedError captures non-2xx upstream responses with status-aware context.
type RequestFailedError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("openrouter: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *RequestFailedError) HTTPStatusCode() int {
	return e.StatusCode
}

// TransportError is returned when no HTTP response was received at all:
// DNS failure, refused connection, timeout or cancellation.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("openrouter: transport error calling %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 2xx response body is not valid JSON.
type DecodeError struct {
	Body string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("openrouter: decode response: %v", e.Err)
	}
	return "openrouter: decode response: body is not valid JSON"
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
