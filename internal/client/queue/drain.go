package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/actions"
	"github.com/dmitrijs2005/timekeeper/internal/client/store"
	"github.com/dmitrijs2005/timekeeper/internal/common"
)

// Drain replays every queued action once, oldest first. Replay failures are
// recorded on the actions and never returned; the error result is reserved
// for storage problems.
func (q *Queue) Drain(ctx context.Context, replay ReplayFunc) (Report, error) {
	var rep Report

	list, err := q.st.Actions().GetAll(ctx)
	if err != nil {
		return rep, fmt.Errorf("load queue: %w", err)
	}

	pending := make(map[int64]bool, len(list))
	for _, a := range list {
		pending[a.ID] = true
	}

loop:
	for _, a := range list {
		if err := ctx.Err(); err != nil {
			rep.Aborted = err
			break
		}
		if !pending[a.ID] {
			// dropped along with its dependency
			continue
		}
		if a.DependsOn != 0 && pending[a.DependsOn] {
			rep.Skipped++
			continue
		}

		res, rerr := replay(ctx, *a)
		switch {
		case rerr == nil:
			serverID, err := q.succeed(ctx, a, res)
			if err != nil {
				return rep, err
			}
			delete(pending, a.ID)
			if serverID != "" {
				for _, other := range list {
					if other.EntityID == a.EntityID && other.ID != a.ID {
						other.Rebind(a.EntityID, serverID)
					}
				}
			}
			rep.Replayed++

		case Abort(rerr) || ctx.Err() != nil:
			rep.Aborted = rerr
			q.logger.Info(ctx, "drain stopped, actions stay queued", "action_id", a.ID, "error", rerr)
			break loop

		default:
			gone, err := q.fail(ctx, a, rerr)
			if err != nil {
				return rep, err
			}
			if len(gone) == 0 {
				rep.Failed++
				continue
			}
			for _, id := range gone {
				delete(pending, id)
			}
			rep.Dropped += len(gone)
		}
	}

	n, err := q.Len(ctx)
	if err != nil {
		return rep, fmt.Errorf("count queue: %w", err)
	}
	rep.Remaining = n
	return rep, nil
}

// succeed removes a and applies res. For a create on a temporary id it
// returns the server id after moving the entity and rebinding dependents.
func (q *Queue) succeed(ctx context.Context, a *models.PendingAction, res Result) (string, error) {
	var serverID string
	if a.Kind == models.KindCreateTimesheet && common.IsTempID(a.EntityID) && res.Entity != nil && res.Entity.ID != "" {
		serverID = res.Entity.ID
	}

	err := q.st.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		if err := r.Actions.Remove(ctx, a.ID); err != nil {
			return err
		}

		// create responses do not echo the owner
		if res.Entity != nil && res.Entity.OwnerID == "" && a.EntityID != "" {
			prev, err := r.Entities.Get(ctx, a.EntityID)
			switch {
			case err == nil:
				res.Entity.OwnerID = prev.OwnerID
			case !errors.Is(err, common.ErrorNotFound):
				return err
			}
		}

		if serverID != "" {
			deps, err := r.Actions.GetByIndex(ctx, actions.IndexEntity, a.EntityID)
			if err != nil {
				return err
			}
			for _, d := range deps {
				d.Rebind(a.EntityID, serverID)
				if err := r.Actions.Put(ctx, d); err != nil {
					return err
				}
			}
			if err := r.Entities.Remove(ctx, a.EntityID); err != nil {
				return err
			}
		}

		if res.Entity != nil {
			return r.Entities.Put(ctx, res.Entity)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("apply replay of action %d: %w", a.ID, err)
	}

	q.logger.Debug(ctx, "action replayed", "action_id", a.ID, "kind", a.Kind, "server_id", serverID)
	return serverID, nil
}

// fail records a failed replay. When a has used up its retries it is removed
// together with every action that (transitively) depends on it; the ids of
// removed actions are returned.
func (q *Queue) fail(ctx context.Context, a *models.PendingAction, cause error) ([]int64, error) {
	a.Retries++
	a.LastError = cause.Error()

	if a.Retries <= q.maxRetries {
		if err := q.st.Actions().Put(ctx, a); err != nil {
			return nil, fmt.Errorf("record failure of action %d: %w", a.ID, err)
		}
		q.logger.Info(ctx, "replay failed, will retry",
			"action_id", a.ID, "kind", a.Kind, "retries", a.Retries, "error", cause)
		return nil, nil
	}

	var victims []models.PendingAction
	err := q.st.WithTx(ctx, func(ctx context.Context, r store.Repositories) error {
		all, err := r.Actions.GetAll(ctx)
		if err != nil {
			return err
		}
		victims = append([]models.PendingAction{*a}, dependents(all, a.ID)...)

		for _, v := range victims {
			if err := r.Actions.Remove(ctx, v.ID); err != nil {
				return err
			}
			// a timesheet that was never created server-side cannot be synced
			if v.Kind == models.KindCreateTimesheet && common.IsTempID(v.EntityID) {
				if err := r.Entities.Remove(ctx, v.EntityID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("drop action %d: %w", a.ID, err)
	}

	ids := make([]int64, 0, len(victims))
	for i, v := range victims {
		ids = append(ids, v.ID)
		ev := DropEvent{Action: v, Err: cause}
		if i > 0 {
			ev.Cascade = true
			ev.Err = fmt.Errorf("dependency %d dropped: %w", a.ID, cause)
		}
		q.logger.Warn(ctx, "action dropped",
			"action_id", v.ID, "kind", v.Kind, "retries", v.Retries, "error", ev.Err)
		q.dropped.Emit(ev)
	}
	return ids, nil
}

// dependents returns every action in all whose dependency chain reaches root.
func dependents(all []*models.PendingAction, root int64) []models.PendingAction {
	var out []models.PendingAction
	frontier := map[int64]bool{root: true}
	for changed := true; changed; {
		changed = false
		for _, a := range all {
			if a.DependsOn != 0 && frontier[a.DependsOn] && !frontier[a.ID] {
				frontier[a.ID] = true
				out = append(out, *a)
				changed = true
			}
		}
	}
	return out
}
