// Package cache keeps recent GET responses for reads while offline.
//
// An entry is served while now - inserted_at <= ttl. An expired entry is
// removed the first time it is read. Nothing sweeps expired entries
// proactively.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	cacherepo "github.com/dmitrijs2005/timekeeper/internal/client/repositories/cache"
	"github.com/dmitrijs2005/timekeeper/internal/common"
)

type Cache struct {
	repo       cacherepo.Repository
	now        func() time.Time
	defaultTTL time.Duration
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithDefaultTTL overrides models.DefaultCacheTTL for entries cached
// without an explicit ttl.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

func New(repo cacherepo.Repository, opts ...Option) *Cache {
	c := &Cache{repo: repo, now: time.Now, defaultTTL: models.DefaultCacheTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheResponse stores data under endpoint, replacing any previous entry.
// A ttl of zero or less uses the default.
func (c *Cache) CacheResponse(ctx context.Context, endpoint string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	e := &models.CacheEntry{
		Key:        Key(endpoint),
		Payload:    append([]byte(nil), data...),
		InsertedAt: c.now().UTC(),
		TTL:        ttl,
	}
	if err := c.repo.Put(ctx, e); err != nil {
		return fmt.Errorf("cache %s: %w", e.Key, err)
	}
	return nil
}

// GetCached returns the payload stored for endpoint if it is still fresh.
// ok is false on a miss, including when the entry had expired and was
// removed by this call.
func (c *Cache) GetCached(ctx context.Context, endpoint string) (data []byte, ok bool, err error) {
	key := Key(endpoint)

	e, err := c.repo.Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache %s: %w", key, err)
	}

	if !e.Valid(c.now()) {
		if err := c.repo.Remove(ctx, key); err != nil {
			return nil, false, fmt.Errorf("evict cache %s: %w", key, err)
		}
		return nil, false, nil
	}
	return e.Payload, true, nil
}

// Key returns the logical endpoint used as the cache key: the path with its
// query parameters in sorted order.
func Key(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.RawQuery == "" {
		return endpoint
	}
	// Encode sorts by key
	u.RawQuery = u.Query().Encode()
	return u.String()
}
