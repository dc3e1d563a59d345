package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/queue"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/actions"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/google/uuid"
)

// Result describes the outcome of a mutation.
type Result struct {
	Timesheet *models.CachedEntity
	// Queued is set when the change was stored locally for later replay.
	Queued   bool
	ActionID int64
}

type TimesheetService interface {
	List(ctx context.Context) ([]*models.CachedEntity, error)
	Get(ctx context.Context, id string) (*models.CachedEntity, error)
	PendingReview(ctx context.Context) ([]*models.CachedEntity, error)
	ListLocal(ctx context.Context) ([]*models.CachedEntity, error)

	Create(ctx context.Context, year, month int) (Result, error)
	Submit(ctx context.Context, id string) (Result, error)
	Update(ctx context.Context, id string, u models.TimesheetUpdate) (Result, error)
	Approve(ctx context.Context, id, notes string) (Result, error)
	Reject(ctx context.Context, id, notes string) (Result, error)
}

// OwnerFunc returns the id of the logged-in user.
type OwnerFunc func(ctx context.Context) (string, error)

// Deps bundles what the services need. All fields are required except Now.
type Deps struct {
	Client   client.Client
	Entities entities.Repository
	Actions  actions.Repository
	Queue    *queue.Queue
	Cache    *cache.Cache
	Owner    OwnerFunc
	Logger   logging.Logger
	Now      func() time.Time
	// AllowUpdates enables Update. Without it Update fails with
	// ErrUpdateUnsupported and nothing is queued.
	AllowUpdates bool
}

type timesheetService struct {
	Deps
}

func NewTimesheetService(d Deps) TimesheetService {
	return newTimesheetService(d)
}

func newTimesheetService(d Deps) *timesheetService {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &timesheetService{Deps: d}
}

const (
	listEndpoint    = "/timesheets/"
	pendingEndpoint = "/timesheets/pending/review"
)

func (s *timesheetService) List(ctx context.Context) ([]*models.CachedEntity, error) {
	return s.readList(ctx, listEndpoint)
}

func (s *timesheetService) PendingReview(ctx context.Context) ([]*models.CachedEntity, error) {
	return s.readList(ctx, pendingEndpoint)
}

func (s *timesheetService) ListLocal(ctx context.Context) ([]*models.CachedEntity, error) {
	items, err := s.Entities.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read local timesheets: %w", err)
	}
	return items, nil
}

func (s *timesheetService) Get(ctx context.Context, id string) (*models.CachedEntity, error) {
	// a temporary id only exists locally
	if common.IsTempID(id) {
		return s.Entities.Get(ctx, id)
	}

	raw, fresh, err := s.read(ctx, models.TimesheetPath(id, ""))
	if err != nil {
		return nil, err
	}
	e, err := models.EntityFromServer(raw, s.Now().UTC())
	if err != nil {
		return nil, err
	}
	if fresh {
		s.absorb(ctx, e)
	}
	return e, nil
}

func (s *timesheetService) readList(ctx context.Context, endpoint string) ([]*models.CachedEntity, error) {
	raw, fresh, err := s.read(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	items, err := models.EntitiesFromServer(raw, s.Now().UTC())
	if err != nil {
		return nil, err
	}
	if fresh {
		s.absorb(ctx, items...)
	}
	return items, nil
}

// read fetches endpoint, falling back to the response cache when the server
// is unreachable. fresh reports whether the data came from the server.
func (s *timesheetService) read(ctx context.Context, endpoint string) (raw json.RawMessage, fresh bool, err error) {
	raw, err = s.Client.Do(ctx, http.MethodGet, endpoint, nil)
	if err == nil {
		if cerr := s.Cache.CacheResponse(ctx, endpoint, raw, 0); cerr != nil {
			s.Logger.Warn(ctx, "caching response failed", "endpoint", endpoint, "error", cerr)
		}
		return raw, true, nil
	}
	if !errors.Is(err, client.ErrUnavailable) {
		return nil, false, err
	}

	cached, ok, cerr := s.Cache.GetCached(ctx, endpoint)
	if cerr != nil {
		return nil, false, cerr
	}
	if !ok {
		return nil, false, fmt.Errorf("%s: %w", endpoint, ErrStale)
	}
	s.Logger.Debug(ctx, "serving cached response", "endpoint", endpoint)
	return cached, false, nil
}

// absorb stores server copies locally, except for timesheets that still have
// queued changes; their optimistic state wins until the queue drains.
func (s *timesheetService) absorb(ctx context.Context, items ...*models.CachedEntity) {
	for _, e := range items {
		pending, err := s.Actions.GetByIndex(ctx, actions.IndexEntity, e.ID)
		if err != nil {
			s.Logger.Warn(ctx, "checking queued changes failed", "id", e.ID, "error", err)
			continue
		}
		if len(pending) > 0 {
			continue
		}
		if err := s.Entities.Put(ctx, e); err != nil {
			s.Logger.Warn(ctx, "storing timesheet failed", "id", e.ID, "error", err)
		}
	}
}

func (s *timesheetService) Create(ctx context.Context, year, month int) (Result, error) {
	if month < 1 || month > 12 || year < 1 {
		return Result{}, fmt.Errorf("period %d-%d: %w", year, month, common.ErrorInvalidArgument)
	}

	owner, err := s.Owner(ctx)
	if err != nil {
		return Result{}, err
	}

	a := models.NewCreateTimesheet("", year, month)
	method, _ := a.Kind.Method()

	raw, err := s.Client.Do(ctx, method, a.Endpoint, a.Payload)
	if err == nil {
		e := models.EntityFromResponse(raw, s.Now().UTC())
		if e != nil {
			if e.OwnerID == "" {
				e.OwnerID = owner
			}
			if err := s.Entities.Put(ctx, e); err != nil {
				return Result{}, fmt.Errorf("store timesheet: %w", err)
			}
		}
		return Result{Timesheet: e}, nil
	}
	if !errors.Is(err, client.ErrUnavailable) {
		return Result{}, err
	}

	tempID := common.TempIDPrefix + uuid.NewString()
	a = models.NewCreateTimesheet(tempID, year, month)
	e := &models.CachedEntity{
		ID:             tempID,
		OwnerID:        owner,
		Status:         models.StatusDraft,
		CreatedOffline: true,
		UpdatedAt:      s.Now().UTC(),
	}
	if err := e.Merge(map[string]any{"year": year, "month": month, "status": string(models.StatusDraft)}); err != nil {
		return Result{}, err
	}

	queued, err := s.Queue.EnqueueWith(ctx, a, e)
	if err != nil {
		return Result{}, err
	}
	s.Logger.Info(ctx, "server unreachable, timesheet created locally", "id", tempID, "action_id", queued.ID)
	return Result{Timesheet: e, Queued: true, ActionID: queued.ID}, nil
}

func (s *timesheetService) Submit(ctx context.Context, id string) (Result, error) {
	return s.mutate(ctx, models.NewSubmitTimesheet(id), map[string]any{
		"status": string(models.StatusPending),
	})
}

func (s *timesheetService) Update(ctx context.Context, id string, u models.TimesheetUpdate) (Result, error) {
	if !s.AllowUpdates {
		return Result{}, ErrUpdateUnsupported
	}
	fields := u.Fields()
	if len(fields) == 0 {
		return Result{}, fmt.Errorf("empty update: %w", common.ErrorInvalidArgument)
	}
	return s.mutate(ctx, models.NewUpdateTimesheet(id, u), fields)
}

func (s *timesheetService) Approve(ctx context.Context, id, notes string) (Result, error) {
	return s.mutate(ctx, models.NewApproveTimesheet(id, notes), reviewFields(models.StatusApproved, notes))
}

func (s *timesheetService) Reject(ctx context.Context, id, notes string) (Result, error) {
	return s.mutate(ctx, models.NewRejectTimesheet(id, notes), reviewFields(models.StatusRejected, notes))
}

func reviewFields(status models.TimesheetStatus, notes string) map[string]any {
	f := map[string]any{"status": string(status)}
	if notes != "" {
		f["review_notes"] = notes
	}
	return f
}

// mutate sends a to the server, or queues it with the optimistic fields
// applied to the local copy. Timesheets that only exist locally, or that
// already have queued changes, are queued without trying the network so
// the server sees changes in the order they were made.
func (s *timesheetService) mutate(ctx context.Context, a models.PendingAction, optimistic map[string]any) (Result, error) {
	if s.mustQueue(ctx, a.EntityID) {
		return s.queueLocal(ctx, a, optimistic)
	}

	method, err := a.Kind.Method()
	if err != nil {
		return Result{}, err
	}

	raw, err := s.Client.Do(ctx, method, a.Endpoint, a.Payload)
	if err == nil {
		e := models.EntityFromResponse(raw, s.Now().UTC())
		if e != nil {
			if prev, gerr := s.Entities.Get(ctx, e.ID); gerr == nil && e.OwnerID == "" {
				e.OwnerID = prev.OwnerID
			}
			if err := s.Entities.Put(ctx, e); err != nil {
				return Result{}, fmt.Errorf("store timesheet: %w", err)
			}
		}
		return Result{Timesheet: e}, nil
	}
	if !errors.Is(err, client.ErrUnavailable) {
		return Result{}, err
	}
	return s.queueLocal(ctx, a, optimistic)
}

func (s *timesheetService) mustQueue(ctx context.Context, id string) bool {
	if common.IsTempID(id) {
		return true
	}
	pending, err := s.Actions.GetByIndex(ctx, actions.IndexEntity, id)
	return err == nil && len(pending) > 0
}

func (s *timesheetService) queueLocal(ctx context.Context, a models.PendingAction, optimistic map[string]any) (Result, error) {
	e, err := s.Entities.Get(ctx, a.EntityID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		// not cached yet; keep what we know
		e = &models.CachedEntity{ID: a.EntityID}
		if owner, oerr := s.Owner(ctx); oerr == nil {
			e.OwnerID = owner
		}
	case err != nil:
		return Result{}, err
	}

	if err := e.Merge(optimistic); err != nil {
		return Result{}, err
	}
	e.UpdatedAt = s.Now().UTC()

	queued, err := s.Queue.EnqueueWith(ctx, a, e)
	if err != nil {
		return Result{}, err
	}
	s.Logger.Info(ctx, "change queued for sync", "kind", a.Kind, "id", a.EntityID, "action_id", queued.ID)
	return Result{Timesheet: e, Queued: true, ActionID: queued.ID}, nil
}
