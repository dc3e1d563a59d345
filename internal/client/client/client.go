package client

import (
	"context"
	"encoding/json"
)

type Client interface {
	// Do sends payload (may be nil) to endpoint and returns the response
	// body. endpoint is relative to the API base, e.g. "/timesheets/create".
	Do(ctx context.Context, method, endpoint string, payload json.RawMessage) (json.RawMessage, error)
	Ping(ctx context.Context) error
	Close() error
}

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
