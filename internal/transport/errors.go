package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrMalformedRequest is returned without any attempt when the request
	// cannot be sent at all.
	ErrMalformedRequest = errors.New("transport: malformed request")

	// ErrExhausted matches any *ExhaustedError via errors.Is.
	ErrExhausted = errors.New("transport: retries exhausted")
)

// Error is a transient failure: network error, attempt timeout, 5xx or 429.
// Send retries these and only surfaces them wrapped in *ExhaustedError.
type Error struct {
	StatusCode int // 0 for network errors
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: transient status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusError is a terminal 4xx response (anything but 429).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("transport: status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("transport: gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }
