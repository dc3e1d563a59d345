package actions

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

// Index names a secondary lookup column.
type Index string

const (
	IndexKind   Index = "kind"
	IndexEntity Index = "entity_id"
)

// Repository describes storage operations for pending actions.
type Repository interface {
	// Put inserts actions with a zero ID (assigning the new id back to the
	// struct) and overwrites actions that already have one.
	Put(ctx context.Context, items ...*models.PendingAction) error

	// Get returns one action or common.ErrorNotFound.
	Get(ctx context.Context, id int64) (*models.PendingAction, error)

	// GetAll returns every queued action in FIFO order.
	GetAll(ctx context.Context) ([]*models.PendingAction, error)

	// GetByIndex returns queued actions whose index column equals value, FIFO.
	GetByIndex(ctx context.Context, index Index, value string) ([]*models.PendingAction, error)

	// Remove deletes the action; removing a missing id is not an error.
	Remove(ctx context.Context, id int64) error

	// Count returns the number of queued actions.
	Count(ctx context.Context) (int, error)
}
