package store

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/actions"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/timekeeper/internal/common"
)

// memoryData holds every collection. All access goes through the owning
// backend's mutex.
type memoryData struct {
	entities map[string]models.CachedEntity
	actions  map[int64]models.PendingAction
	lastID   int64
	cache    map[string]models.CacheEntry
	meta     map[string][]byte
}

func newMemoryData() *memoryData {
	return &memoryData{
		entities: map[string]models.CachedEntity{},
		actions:  map[int64]models.PendingAction{},
		cache:    map[string]models.CacheEntry{},
		meta:     map[string][]byte{},
	}
}

// clone is shallow per record; records are copied on the way in and out so
// the maps never share payload slices with callers.
func (d *memoryData) clone() *memoryData {
	return &memoryData{
		entities: maps.Clone(d.entities),
		actions:  maps.Clone(d.actions),
		lastID:   d.lastID,
		cache:    maps.Clone(d.cache),
		meta:     maps.Clone(d.meta),
	}
}

type memoryBackend struct {
	mu   sync.Mutex
	data *memoryData
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{data: newMemoryData()}
}

func (b *memoryBackend) repos() Repositories { return b.bind(false) }

func (b *memoryBackend) bind(inTx bool) Repositories {
	v := &memView{b: b, inTx: inTx}
	return Repositories{
		Entities: memEntities{v},
		Actions:  memActions{v},
		Cache:    memCache{v},
		Metadata: memMetadata{v},
	}
}

// withTx holds the lock for the whole of fn and restores the snapshot taken
// before fn when it fails or panics.
func (b *memoryBackend) withTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) (err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.data.clone()
	defer func() {
		if p := recover(); p != nil {
			b.data = snapshot
			panic(p)
		}
		if err != nil {
			b.data = snapshot
		}
	}()

	return fn(ctx, b.bind(true))
}

func (b *memoryBackend) close() error { return nil }

func (b *memoryBackend) durable() bool { return false }

type memView struct {
	b    *memoryBackend
	inTx bool
}

func (v *memView) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.b.mu.Lock()
	return v.b.mu.Unlock
}

func copyEntity(e models.CachedEntity) *models.CachedEntity {
	e.Payload = bytes.Clone(e.Payload)
	return &e
}

func copyAction(a models.PendingAction) *models.PendingAction {
	a.Payload = bytes.Clone(a.Payload)
	return &a
}

func copyEntry(c models.CacheEntry) *models.CacheEntry {
	c.Payload = bytes.Clone(c.Payload)
	return &c
}

type memEntities struct{ v *memView }

func (r memEntities) Put(ctx context.Context, items ...*models.CachedEntity) error {
	defer r.v.lock()()
	for _, e := range items {
		if e == nil || e.ID == "" {
			return fmt.Errorf("put entity: %w", common.ErrorInvalidArgument)
		}
		c := copyEntity(*e)
		if c.Payload == nil {
			c.Payload = []byte("{}")
		}
		r.v.b.data.entities[e.ID] = *c
	}
	return nil
}

func (r memEntities) Get(ctx context.Context, id string) (*models.CachedEntity, error) {
	defer r.v.lock()()
	e, ok := r.v.b.data.entities[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyEntity(e), nil
}

func (r memEntities) GetAll(ctx context.Context) ([]*models.CachedEntity, error) {
	defer r.v.lock()()
	return r.filter(func(models.CachedEntity) bool { return true }), nil
}

func (r memEntities) GetByIndex(ctx context.Context, index entities.Index, value string) ([]*models.CachedEntity, error) {
	var match func(models.CachedEntity) bool
	switch index {
	case entities.IndexOwner:
		match = func(e models.CachedEntity) bool { return e.OwnerID == value }
	case entities.IndexStatus:
		match = func(e models.CachedEntity) bool { return string(e.Status) == value }
	default:
		return nil, fmt.Errorf("entity index %q: %w", index, common.ErrorInvalidArgument)
	}
	defer r.v.lock()()
	return r.filter(match), nil
}

func (r memEntities) filter(match func(models.CachedEntity) bool) []*models.CachedEntity {
	ids := slices.Sorted(maps.Keys(r.v.b.data.entities))
	out := make([]*models.CachedEntity, 0, len(ids))
	for _, id := range ids {
		if e := r.v.b.data.entities[id]; match(e) {
			out = append(out, copyEntity(e))
		}
	}
	return out
}

func (r memEntities) Remove(ctx context.Context, id string) error {
	defer r.v.lock()()
	delete(r.v.b.data.entities, id)
	return nil
}

type memActions struct{ v *memView }

func (r memActions) Put(ctx context.Context, items ...*models.PendingAction) error {
	defer r.v.lock()()
	d := r.v.b.data
	for _, a := range items {
		if a == nil {
			return fmt.Errorf("put action: %w", common.ErrorInvalidArgument)
		}
		if a.ID == 0 {
			d.lastID++
			a.ID = d.lastID
		} else if a.ID > d.lastID {
			d.lastID = a.ID
		}
		c := copyAction(*a)
		if c.Payload == nil {
			c.Payload = []byte("{}")
		}
		d.actions[a.ID] = *c
	}
	return nil
}

func (r memActions) Get(ctx context.Context, id int64) (*models.PendingAction, error) {
	defer r.v.lock()()
	a, ok := r.v.b.data.actions[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyAction(a), nil
}

func (r memActions) GetAll(ctx context.Context) ([]*models.PendingAction, error) {
	defer r.v.lock()()
	return r.filter(func(models.PendingAction) bool { return true }), nil
}

func (r memActions) GetByIndex(ctx context.Context, index actions.Index, value string) ([]*models.PendingAction, error) {
	var match func(models.PendingAction) bool
	switch index {
	case actions.IndexKind:
		match = func(a models.PendingAction) bool { return string(a.Kind) == value }
	case actions.IndexEntity:
		match = func(a models.PendingAction) bool { return a.EntityID == value }
	default:
		return nil, fmt.Errorf("action index %q: %w", index, common.ErrorInvalidArgument)
	}
	defer r.v.lock()()
	return r.filter(match), nil
}

func (r memActions) filter(match func(models.PendingAction) bool) []*models.PendingAction {
	out := make([]*models.PendingAction, 0, len(r.v.b.data.actions))
	for _, a := range r.v.b.data.actions {
		if match(a) {
			out = append(out, copyAction(a))
		}
	}
	slices.SortFunc(out, func(x, y *models.PendingAction) int {
		if c := x.CreatedAt.Compare(y.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return out
}

func (r memActions) Remove(ctx context.Context, id int64) error {
	defer r.v.lock()()
	delete(r.v.b.data.actions, id)
	return nil
}

func (r memActions) Count(ctx context.Context) (int, error) {
	defer r.v.lock()()
	return len(r.v.b.data.actions), nil
}

type memCache struct{ v *memView }

func (r memCache) Put(ctx context.Context, items ...*models.CacheEntry) error {
	defer r.v.lock()()
	for _, c := range items {
		if c == nil || c.Key == "" {
			return fmt.Errorf("put cache entry: %w", common.ErrorInvalidArgument)
		}
		r.v.b.data.cache[c.Key] = *copyEntry(*c)
	}
	return nil
}

func (r memCache) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	defer r.v.lock()()
	c, ok := r.v.b.data.cache[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyEntry(c), nil
}

func (r memCache) GetAll(ctx context.Context) ([]*models.CacheEntry, error) {
	defer r.v.lock()()
	keys := slices.Sorted(maps.Keys(r.v.b.data.cache))
	out := make([]*models.CacheEntry, 0, len(keys))
	for _, k := range keys {
		out = append(out, copyEntry(r.v.b.data.cache[k]))
	}
	return out, nil
}

func (r memCache) Remove(ctx context.Context, key string) error {
	defer r.v.lock()()
	delete(r.v.b.data.cache, key)
	return nil
}

type memMetadata struct{ v *memView }

func (r memMetadata) Get(ctx context.Context, key string) ([]byte, error) {
	defer r.v.lock()()
	v, ok := r.v.b.data.meta[key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (r memMetadata) Set(ctx context.Context, key string, value []byte) error {
	defer r.v.lock()()
	r.v.b.data.meta[key] = bytes.Clone(value)
	return nil
}

func (r memMetadata) Delete(ctx context.Context, key string) error {
	defer r.v.lock()()
	delete(r.v.b.data.meta, key)
	return nil
}

func (r memMetadata) List(ctx context.Context) (map[string][]byte, error) {
	defer r.v.lock()()
	out := make(map[string][]byte, len(r.v.b.data.meta))
	for k, v := range r.v.b.data.meta {
		out[k] = bytes.Clone(v)
	}
	return out, nil
}

func (r memMetadata) Clear(ctx context.Context) error {
	defer r.v.lock()()
	clear(r.v.b.data.meta)
	return nil
}
