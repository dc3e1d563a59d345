// Package entities persists the client's cached copies of server timesheets.
//
// # Data Model
//
// Each row holds the server representation verbatim (payload), plus the
// columns the offline layer queries on: owner id, status and the
// created_offline flag. Rows are upserted whenever a fresher server copy
// arrives and are only removed by explicit invalidation or when a temporary
// id is re-keyed to its server id.
//
// Secondary indexes: IndexOwner and IndexStatus (see GetByIndex).
//
// Typical Usage
//
//	repo := entities.NewSQLiteRepository(db)
//	_ = repo.Put(ctx, e1, e2)
//	one, _ := repo.Get(ctx, "17")
//	drafts, _ := repo.GetByIndex(ctx, entities.IndexStatus, "draft")
//	_ = repo.Remove(ctx, "tmp-...")
package entities
