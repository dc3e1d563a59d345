package store

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/actions"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/entities"
)

// The facades route every call through Store.do so that a storage failure
// in any collection degrades the whole store.

type entityFacade struct{ s *Store }

func (f entityFacade) Put(ctx context.Context, items ...*models.CachedEntity) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Entities.Put(ctx, items...) })
}

func (f entityFacade) Get(ctx context.Context, id string) (e *models.CachedEntity, err error) {
	err = f.s.do(ctx, func(b backend) error {
		e, err = b.repos().Entities.Get(ctx, id)
		return err
	})
	return e, err
}

func (f entityFacade) GetAll(ctx context.Context) (out []*models.CachedEntity, err error) {
	err = f.s.do(ctx, func(b backend) error {
		out, err = b.repos().Entities.GetAll(ctx)
		return err
	})
	return out, err
}

func (f entityFacade) GetByIndex(ctx context.Context, index entities.Index, value string) (out []*models.CachedEntity, err error) {
	err = f.s.do(ctx, func(b backend) error {
		out, err = b.repos().Entities.GetByIndex(ctx, index, value)
		return err
	})
	return out, err
}

func (f entityFacade) Remove(ctx context.Context, id string) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Entities.Remove(ctx, id) })
}

type actionFacade struct{ s *Store }

func (f actionFacade) Put(ctx context.Context, items ...*models.PendingAction) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Actions.Put(ctx, items...) })
}

func (f actionFacade) Get(ctx context.Context, id int64) (a *models.PendingAction, err error) {
	err = f.s.do(ctx, func(b backend) error {
		a, err = b.repos().Actions.Get(ctx, id)
		return err
	})
	return a, err
}

func (f actionFacade) GetAll(ctx context.Context) (out []*models.PendingAction, err error) {
	err = f.s.do(ctx, func(b backend) error {
		out, err = b.repos().Actions.GetAll(ctx)
		return err
	})
	return out, err
}

func (f actionFacade) GetByIndex(ctx context.Context, index actions.Index, value string) (out []*models.PendingAction, err error) {
	err = f.s.do(ctx, func(b backend) error {
		out, err = b.repos().Actions.GetByIndex(ctx, index, value)
		return err
	})
	return out, err
}

func (f actionFacade) Remove(ctx context.Context, id int64) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Actions.Remove(ctx, id) })
}

func (f actionFacade) Count(ctx context.Context) (n int, err error) {
	err = f.s.do(ctx, func(b backend) error {
		n, err = b.repos().Actions.Count(ctx)
		return err
	})
	return n, err
}

type cacheFacade struct{ s *Store }

func (f cacheFacade) Put(ctx context.Context, items ...*models.CacheEntry) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Cache.Put(ctx, items...) })
}

func (f cacheFacade) Get(ctx context.Context, key string) (c *models.CacheEntry, err error) {
	err = f.s.do(ctx, func(b backend) error {
		c, err = b.repos().Cache.Get(ctx, key)
		return err
	})
	return c, err
}

func (f cacheFacade) GetAll(ctx context.Context) (out []*models.CacheEntry, err error) {
	err = f.s.do(ctx, func(b backend) error {
		out, err = b.repos().Cache.GetAll(ctx)
		return err
	})
	return out, err
}

func (f cacheFacade) Remove(ctx context.Context, key string) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Cache.Remove(ctx, key) })
}

type metadataFacade struct{ s *Store }

func (f metadataFacade) Get(ctx context.Context, key string) (v []byte, err error) {
	err = f.s.do(ctx, func(b backend) error {
		v, err = b.repos().Metadata.Get(ctx, key)
		return err
	})
	return v, err
}

func (f metadataFacade) Set(ctx context.Context, key string, value []byte) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Metadata.Set(ctx, key, value) })
}

func (f metadataFacade) Delete(ctx context.Context, key string) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Metadata.Delete(ctx, key) })
}

func (f metadataFacade) List(ctx context.Context) (kv map[string][]byte, err error) {
	err = f.s.do(ctx, func(b backend) error {
		kv, err = b.repos().Metadata.List(ctx)
		return err
	})
	return kv, err
}

func (f metadataFacade) Clear(ctx context.Context) error {
	return f.s.do(ctx, func(b backend) error { return b.repos().Metadata.Clear(ctx) })
}
