package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityFromServer_NumericIDs(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"id":17,"user_id":4,"status":"draft","google_sheet_url":"https://sheets/x","total_hours":null}`)

	e, err := EntityFromServer(raw, now)
	require.NoError(t, err)

	assert.Equal(t, "17", e.ID)
	assert.Equal(t, "4", e.OwnerID)
	assert.Equal(t, StatusDraft, e.Status)
	assert.False(t, e.CreatedOffline)
	assert.Equal(t, now, e.UpdatedAt)
	assert.JSONEq(t, string(raw), string(e.Payload))
}

func TestEntityFromServer_Errors(t *testing.T) {
	_, err := EntityFromServer(json.RawMessage(`{"status":"draft"}`), time.Now())
	require.ErrorContains(t, err, "missing id")

	_, err = EntityFromServer(json.RawMessage(`[1,2]`), time.Now())
	require.Error(t, err)
}

func TestEntitiesFromServer(t *testing.T) {
	list, err := EntitiesFromServer(json.RawMessage(`[{"id":1,"status":"pending"},{"id":"2","status":"approved"}]`), time.Now())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, StatusApproved, list[1].Status)
}

func TestCachedEntity_MergeAndTimesheet(t *testing.T) {
	e := &CachedEntity{ID: "tmp-1", Status: StatusDraft, Payload: json.RawMessage(`{"year":2024,"month":3}`)}

	require.NoError(t, e.Merge(map[string]any{"status": "pending", "review_notes": "ok"}))
	assert.Equal(t, StatusPending, e.Status)

	ts, err := e.Timesheet()
	require.NoError(t, err)
	assert.Equal(t, "tmp-1", ts.ID)
	assert.Equal(t, 2024, ts.Year)
	assert.Equal(t, 3, ts.Month)
	require.NotNil(t, ts.ReviewNotes)
	assert.Equal(t, "ok", *ts.ReviewNotes)
}

func TestCachedEntity_Rekey(t *testing.T) {
	e := &CachedEntity{ID: "tmp-1", Payload: json.RawMessage(`{"year":2024}`)}
	require.NoError(t, e.Rekey("99"))

	assert.Equal(t, "99", e.ID)
	assert.JSONEq(t, `{"year":2024,"id":"99"}`, string(e.Payload))
}

func TestCachedEntity_MergeEmptyPayload(t *testing.T) {
	e := &CachedEntity{ID: "5"}
	require.NoError(t, e.Merge(map[string]any{"total_hours": 8}))
	assert.JSONEq(t, `{"total_hours":8}`, string(e.Payload))
}

func TestEntityFromResponse(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	bare := EntityFromResponse(json.RawMessage(`{"id":17,"status":"draft","google_sheet_url":"https://x"}`), now)
	require.NotNil(t, bare)
	assert.Equal(t, "17", bare.ID)

	wrapped := EntityFromResponse(json.RawMessage(`{"message":"Timesheet submitted successfully","timesheet":{"id":17,"user_id":4,"status":"pending"}}`), now)
	require.NotNil(t, wrapped)
	assert.Equal(t, StatusPending, wrapped.Status)
	assert.Equal(t, "4", wrapped.OwnerID)

	assert.Nil(t, EntityFromResponse(json.RawMessage(`{"message":"ok"}`), now))
	assert.Nil(t, EntityFromResponse(nil, now))
}
