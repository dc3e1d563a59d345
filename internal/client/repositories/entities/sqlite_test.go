package entities

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE timesheets (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT '',
  payload BLOB NOT NULL,
  created_offline INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

var at = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func entity(id, owner string, status models.TimesheetStatus) *models.CachedEntity {
	return &models.CachedEntity{
		ID:        id,
		OwnerID:   owner,
		Status:    status,
		Payload:   json.RawMessage(`{"id":"` + id + `","status":"` + string(status) + `"}`),
		UpdatedAt: at,
	}
}

func TestPutGet_RoundTrip(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	want := entity("tmp-1", "4", models.StatusDraft)
	want.CreatedOffline = true
	require.NoError(t, r.Put(ctx, want))

	got, err := r.Get(ctx, "tmp-1")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got))
}

func TestPut_OverwritesExisting(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, entity("1", "4", models.StatusDraft)))
	require.NoError(t, r.Put(ctx, entity("1", "4", models.StatusPending)))

	got, err := r.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPut_NilPayloadStoredAsEmptyObject(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, &models.CachedEntity{ID: "x", UpdatedAt: at}))
	got, err := r.Get(ctx, "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(got.Payload))
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByIndex(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx,
		entity("1", "4", models.StatusDraft),
		entity("2", "4", models.StatusPending),
		entity("3", "5", models.StatusPending),
	))

	byOwner, err := r.GetByIndex(ctx, IndexOwner, "4")
	require.NoError(t, err)
	require.Len(t, byOwner, 2)
	assert.Equal(t, "1", byOwner[0].ID)
	assert.Equal(t, "2", byOwner[1].ID)

	pending, err := r.GetByIndex(ctx, IndexStatus, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = r.GetByIndex(ctx, Index("color"), "red")
	require.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestRemove_IsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, entity("1", "4", models.StatusDraft)))
	require.NoError(t, r.Remove(ctx, "1"))
	require.NoError(t, r.Remove(ctx, "1"))

	_, err := r.Get(ctx, "1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDBErrorsAreWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	require.ErrorContains(t, r.Put(ctx, entity("1", "4", models.StatusDraft)), "failed to upsert timesheet 1")
	_, err := r.Get(ctx, "1")
	require.ErrorContains(t, err, "failed to get timesheet 1")
	_, err = r.GetAll(ctx)
	require.ErrorContains(t, err, "failed to select timesheets")
	require.ErrorContains(t, r.Remove(ctx, "1"), "failed to delete timesheet 1")
}

func TestGetAll_ScanErrorIsReported(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "status", "payload", "created_offline", "updated_at"}).
		AddRow("1", "4", "draft", []byte(`{}`), false, "not-a-number")
	mock.ExpectQuery("select id, owner_id").WillReturnRows(rows)

	_, err = NewSQLiteRepository(db).GetAll(context.Background())
	require.ErrorContains(t, err, "failed to scan timesheet")
	require.NoError(t, mock.ExpectationsWereMet())
}
