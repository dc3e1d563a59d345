// Package queue is the durable FIFO of mutations made while the server was
// unreachable.
//
// Enqueue never touches the network. Drain hands each action to a replay
// function in creation order and applies the outcome: success removes the
// action, failure bumps its retry counter, and an action that has failed
// more than MaxRetries times is dropped and announced to subscribers.
//
// Actions may depend on a queued CreateTimesheet through DependsOn. Such an
// action waits until its dependency has been replayed; the server id the
// create returns is then written into the dependent's entity id and endpoint,
// and the cached timesheet is moved from its temporary id to the server id,
// all in one transaction.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/auth"
	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/notify"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/actions"
	"github.com/dmitrijs2005/timekeeper/internal/client/store"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

// DefaultMaxRetries is how many failed replays an action survives.
const DefaultMaxRetries = 3

// Result is what a successful replay learned from the server.
type Result struct {
	// Entity is the server's copy of the affected timesheet, nil when the
	// response did not carry one.
	Entity *models.CachedEntity
}

type ReplayFunc func(ctx context.Context, a models.PendingAction) (Result, error)

// Report summarises one drain.
type Report struct {
	Replayed  int `json:"replayed"`
	Failed    int `json:"failed"`
	Dropped   int `json:"dropped"`
	Skipped   int `json:"skipped"`
	Remaining int `json:"remaining"`

	// Aborted is set when the drain stopped early because the server became
	// unreachable or the credential is no longer usable.
	Aborted error `json:"-"`
}

// DropEvent announces an action removed without ever reaching the server.
type DropEvent struct {
	Action models.PendingAction
	Err    error
	// Cascade is true when the action was dropped because its dependency was.
	Cascade bool
}

type Queue struct {
	st         *store.Store
	logger     logging.Logger
	now        func() time.Time
	maxRetries int
	dropped    notify.Emitter[DropEvent]
}

type Option func(*Queue)

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

func New(st *store.Store, logger logging.Logger, opts ...Option) *Queue {
	q := &Queue{
		st:         st,
		logger:     logger,
		now:        time.Now,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// OnDropped subscribes h to dropped-action events.
func (q *Queue) OnDropped(h func(DropEvent)) (unsubscribe func()) {
	return q.dropped.Subscribe(h)
}

// Enqueue appends a with a zero retry counter and the current time.
func (q *Queue) Enqueue(ctx context.Context, a models.PendingAction) (models.PendingAction, error) {
	return q.EnqueueWith(ctx, a, nil)
}

// EnqueueWith appends a and upserts the optimistic entity e (may be nil) in
// one transaction. An action on a temporary id is linked to the queued
// create of that id.
func (q *Queue) EnqueueWith(ctx context.Context, a models.PendingAction, e *models.CachedEntity) (models.PendingAction, error) {
	if _, err := a.Kind.Method(); err != nil {
		return models.PendingAction{}, err
	}
	a.ID = 0
	a.Retries = 0
	a.LastError = ""
	a.CreatedAt = q.now().UTC()

	err := q.st.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		if a.Kind != models.KindCreateTimesheet && a.DependsOn == 0 && common.IsTempID(a.EntityID) {
			dep, err := queuedCreate(ctx, r.Actions, a.EntityID)
			if err != nil {
				return err
			}
			a.DependsOn = dep
		}
		if err := r.Actions.Put(ctx, &a); err != nil {
			return err
		}
		if e != nil {
			return r.Entities.Put(ctx, e)
		}
		return nil
	})
	if err != nil {
		return models.PendingAction{}, fmt.Errorf("enqueue %s: %w", a.Kind, err)
	}

	q.logger.Debug(ctx, "action queued", "action_id", a.ID, "kind", a.Kind, "entity_id", a.EntityID)
	return a, nil
}

func queuedCreate(ctx context.Context, r actions.Repository, entityID string) (int64, error) {
	list, err := r.GetByIndex(ctx, actions.IndexEntity, entityID)
	if err != nil {
		return 0, err
	}
	for _, a := range list {
		if a.Kind == models.KindCreateTimesheet {
			return a.ID, nil
		}
	}
	return 0, fmt.Errorf("no queued create for %s: %w", entityID, common.ErrorNotFound)
}

// Pending returns queued actions in replay order.
func (q *Queue) Pending(ctx context.Context) ([]*models.PendingAction, error) {
	return q.st.Actions().GetAll(ctx)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.st.Actions().Count(ctx)
}

// Abort reports whether err means the drain should stop and leave the rest
// of the queue untouched.
func Abort(err error) bool {
	return errors.Is(err, client.ErrUnavailable) ||
		errors.Is(err, client.ErrUnauthorized) ||
		errors.Is(err, auth.ErrCredentialExpired) ||
		errors.Is(err, auth.ErrNoCredential) ||
		errors.Is(err, auth.ErrMalformedToken)
}
