package entities

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

// Index names a secondary lookup column.
type Index string

const (
	IndexOwner  Index = "owner_id"
	IndexStatus Index = "status"
)

// Repository describes storage operations for cached timesheets.
type Repository interface {
	// Put upserts each entity by id; an existing row is overwritten.
	Put(ctx context.Context, items ...*models.CachedEntity) error

	// Get returns the entity with the given id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.CachedEntity, error)

	// GetAll returns every cached entity ordered by id.
	GetAll(ctx context.Context) ([]*models.CachedEntity, error)

	// GetByIndex returns entities whose index column equals value.
	GetByIndex(ctx context.Context, index Index, value string) ([]*models.CachedEntity, error)

	// Remove deletes the entity; removing a missing id is not an error.
	Remove(ctx context.Context, id string) error
}
