package collector

import (
	"fmt"
	"net/http"
)

// StatusError is returned when the search API answered with a non-2xx
// status. AccessDenied reports refusals (bad credentials, forbidden,
// rate-limit) which callers treat differently from server faults.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search api returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) AccessDenied() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// retryable reports whether another attempt may succeed: server faults
// and rate-limit responses, never client errors.
func (e *StatusError) retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ConnectionError wraps transport-level failures (dns, refused, reset).
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("search api request failed: %s", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
