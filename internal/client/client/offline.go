package client

import (
	"context"
	"encoding/json"
)

type offlineClient struct{}

// Offline returns a Client that fails every call with ErrUnavailable, so all
// changes are queued and reads are served from the cache.
func Offline() Client { return offlineClient{} }

func (offlineClient) Do(context.Context, string, string, json.RawMessage) (json.RawMessage, error) {
	return nil, ErrUnavailable
}

func (offlineClient) Ping(context.Context) error { return ErrUnavailable }

func (offlineClient) Close() error { return nil }
