// Package metadata stores small key/value settings next to the offline data:
// the bearer credential and the sync engine's bookkeeping.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyAccessToken     = "access_token"
	KeyLastSyncAttempt = "last_sync_attempt"
)

// Repository is a flat key/value store. Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
