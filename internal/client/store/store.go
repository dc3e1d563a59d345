package store

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/actions"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

// ErrStorageUnavailable is reported when the durable backend cannot be used.
// The Store recovers from it by degrading; it only surfaces when even the
// in-memory retry fails.
var ErrStorageUnavailable = errors.New("local storage unavailable")

// Repositories is the set of collection handles bound to one backend or
// one transaction.
type Repositories struct {
	Entities entities.Repository
	Actions  actions.Repository
	Cache    cache.Repository
	Metadata metadata.Repository
}

type backend interface {
	repos() Repositories
	withTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
	close() error
	durable() bool
}

type Store struct {
	mu       sync.RWMutex
	b        backend
	degraded bool
	logger   logging.Logger
}

// Open opens the SQLite database at dsn and applies migrations. It does not
// fail: when SQLite is unusable the returned Store runs in degraded mode.
func Open(ctx context.Context, dsn string, logger logging.Logger) *Store {
	s := &Store{logger: logger}

	b, err := openSQLite(ctx, dsn)
	if err != nil {
		logger.Warn(ctx, "local store unavailable, falling back to memory", "dsn", dsn, "error", err)
		s.b = newMemoryBackend()
		s.degraded = true
		return s
	}
	s.b = b
	return s
}

// OpenMemory returns a Store that never touches disk.
func OpenMemory(logger logging.Logger) *Store {
	return &Store{b: newMemoryBackend(), logger: logger}
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.close()
}

// Degraded reports whether the store fell back to memory during this session.
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

func (s *Store) Entities() entities.Repository { return entityFacade{s} }
func (s *Store) Actions() actions.Repository   { return actionFacade{s} }
func (s *Store) Cache() cache.Repository       { return cacheFacade{s} }
func (s *Store) Metadata() metadata.Repository { return metadataFacade{s} }

// WithTx runs fn atomically. fn must only use the Repositories it is given.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return s.do(ctx, func(b backend) error {
		return b.withTx(ctx, fn)
	})
}

func (s *Store) current() backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.b
}

// do runs op against the current backend and, on a storage failure of a
// durable backend, degrades and retries op once.
func (s *Store) do(ctx context.Context, op func(b backend) error) error {
	b := s.current()
	err := op(b)
	if err == nil || !b.durable() || !isStorageFailure(err) {
		return unwrapCaller(err)
	}

	s.degrade(ctx, b, err)

	if err := op(s.current()); err != nil {
		if isStorageFailure(err) {
			return errors.Join(ErrStorageUnavailable, err)
		}
		return unwrapCaller(err)
	}
	return nil
}

func unwrapCaller(err error) error {
	var ce *callerError
	if errors.As(err, &ce) {
		return ce.err
	}
	return err
}

func (s *Store) degrade(ctx context.Context, failed backend, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.b != failed {
		// another call already switched
		return
	}

	mem := newMemoryBackend()
	copied := copyInto(ctx, failed.repos(), mem)
	_ = failed.close()

	s.b = mem
	s.degraded = true
	s.logger.Warn(ctx, "local store failed, continuing in memory for this session",
		"error", cause, "records_copied", copied)
}

func isStorageFailure(err error) bool {
	switch {
	case errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorInvalidArgument),
		errors.Is(err, models.ErrUnknownActionKind),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	var txErr *callerError
	return !errors.As(err, &txErr)
}

// callerError marks an error returned by a WithTx callback itself rather
// than by the storage layer; such errors never cause a degrade.
type callerError struct{ err error }

func (e *callerError) Error() string { return e.err.Error() }
func (e *callerError) Unwrap() error { return e.err }

// copyInto moves every readable record from src into mem and returns how
// many records were copied. Read errors are skipped.
func copyInto(ctx context.Context, src Repositories, mem *memoryBackend) int {
	dst := mem.repos()
	n := 0

	if items, err := src.Entities.GetAll(ctx); err == nil && len(items) > 0 {
		if dst.Entities.Put(ctx, items...) == nil {
			n += len(items)
		}
	}
	if items, err := src.Actions.GetAll(ctx); err == nil && len(items) > 0 {
		if dst.Actions.Put(ctx, items...) == nil {
			n += len(items)
		}
	}
	if items, err := src.Cache.GetAll(ctx); err == nil && len(items) > 0 {
		if dst.Cache.Put(ctx, items...) == nil {
			n += len(items)
		}
	}
	if kv, err := src.Metadata.List(ctx); err == nil {
		for k, v := range kv {
			if dst.Metadata.Set(ctx, k, v) == nil {
				n++
			}
		}
	}
	return n
}
