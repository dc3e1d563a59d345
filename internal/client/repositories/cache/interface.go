// Package cache persists cached GET responses keyed by logical endpoint.
package cache

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

type Repository interface {
	Put(ctx context.Context, items ...*models.CacheEntry) error
	// Get returns the entry or common.ErrorNotFound. Expiry is not checked here.
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	GetAll(ctx context.Context) ([]*models.CacheEntry, error)
	Remove(ctx context.Context, key string) error
}
