package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRejected     = errors.New("request rejected")
	ErrServer       = errors.New("server error")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Detail     string
	kind       error
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v (HTTP %d)", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%v (HTTP %d): %s", e.kind, e.StatusCode, e.Detail)
}

func (e *APIError) Unwrap() error { return e.kind }
