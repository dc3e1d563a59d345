package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/monitor"
	"github.com/dmitrijs2005/timekeeper/internal/client/queue"
	"github.com/dmitrijs2005/timekeeper/internal/client/store"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a tiny stand-in for the timesheet server. While down is set it
// answers 503, which the client reports as unavailable.
type fakeAPI struct {
	down atomic.Bool

	mu       sync.Mutex
	requests []string
	nextID   int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.down.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.RequestURI())
	f.nextID++
	id := f.nextID + 100
	f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, client.APIPrefix)
	switch {
	case r.Method == http.MethodGet && path == "/timesheets/":
		_, _ = w.Write([]byte(`[{"id":1,"user_id":7,"status":"draft"},{"id":2,"user_id":7,"status":"approved"}]`))
	case r.Method == http.MethodGet && path == "/timesheets/404":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Timesheet not found"}`))
	case r.Method == http.MethodPost && path == "/timesheets/create":
		var req struct{ Year, Month int }
		_ = json.Unmarshal(body, &req)
		_, _ = w.Write([]byte(`{"id":` + itoa(id) + `,"status":"draft","google_sheet_url":"https://sheets/x"}`))
	case r.Method == http.MethodPost && strings.HasSuffix(path, "/submit"):
		tid := strings.TrimSuffix(strings.TrimPrefix(path, "/timesheets/"), "/submit")
		_, _ = w.Write([]byte(`{"message":"Timesheet submitted successfully","timesheet":{"id":` + tid + `,"status":"pending"}}`))
	case r.Method == http.MethodGet && path == "/timesheets/analytics/monthly":
		_, _ = w.Write([]byte(`[{"month":"Feb 2024","total_hours":150,"submitted_count":1,"approved_count":1,"timesheets":1},` +
			`{"month":"Mar 2024","total_hours":0,"submitted_count":0,"approved_count":0,"timesheets":1}]`))
	case r.Method == http.MethodGet && path == "/timesheets/team/statistics":
		_, _ = w.Write([]byte(`{"total_timesheets":4,"pending_count":2,"approved_count":1,"rejected_count":1,` +
			`"current_month_hours":80.5,"overdue_count":1,"team_member_count":3}`))
	case r.Method == http.MethodGet && path == "/timesheets/team/all":
		_, _ = w.Write([]byte(`[{"id":9,"user_id":12,"staff_name":"Ann","staff_email":"ann@example.com","status":"` +
			r.URL.Query().Get("status") + `","total_hours":40}]`))
	case r.Method == http.MethodPut && path == "/timesheets/5":
		_, _ = w.Write([]byte(`{"id":5,"user_id":7,"status":"draft","total_hours":120}`))
	case r.Method == http.MethodPost && path == "/feedback/":
		_, _ = w.Write([]byte(`{"id":1}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"unexpected"}`))
	}
}

func (f *fakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type env struct {
	api        *fakeAPI
	st         *store.Store
	q          *queue.Queue
	clk        *clock
	timesheets TimesheetService
	analytics  AnalyticsService
	deps       Deps
	feedback   FeedbackService
	client     client.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := client.NewHTTPClient(srv.URL, nil)
	require.NoError(t, err)

	st := store.Open(context.Background(), ":memory:", logging.Discard())
	t.Cleanup(func() { _ = st.Close() })

	clk := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	q := queue.New(st, logging.Discard(), queue.WithClock(clk.now))

	deps := Deps{
		Client:   c,
		Entities: st.Entities(),
		Actions:  st.Actions(),
		Queue:    q,
		Cache:    cache.New(st.Cache(), cache.WithClock(clk.now)),
		Owner:    func(context.Context) (string, error) { return "7", nil },
		Logger:   logging.Discard(),
		Now:      clk.now,

		AllowUpdates: true,
	}
	return &env{
		api:        api,
		st:         st,
		q:          q,
		clk:        clk,
		timesheets: NewTimesheetService(deps),
		analytics:  NewAnalyticsService(deps),
		deps:       deps,
		feedback:   NewFeedbackService(c, q, logging.Discard()),
		client:     c,
	}
}

func TestCreate_Online(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.timesheets.Create(ctx, 2024, 3)
	require.NoError(t, err)
	assert.False(t, res.Queued)
	require.NotNil(t, res.Timesheet)
	assert.False(t, common.IsTempID(res.Timesheet.ID))
	assert.Equal(t, "7", res.Timesheet.OwnerID)

	stored, err := e.st.Entities().Get(ctx, res.Timesheet.ID)
	require.NoError(t, err)
	assert.False(t, stored.CreatedOffline)
}

func TestCreate_OfflineQueuesWithTempID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.api.down.Store(true)

	res, err := e.timesheets.Create(ctx, 2024, 3)
	require.NoError(t, err)
	require.True(t, res.Queued)

	ts := res.Timesheet
	require.NotNil(t, ts)
	assert.True(t, common.IsTempID(ts.ID))
	assert.True(t, ts.CreatedOffline)
	assert.Equal(t, models.StatusDraft, ts.Status)
	assert.Equal(t, "7", ts.OwnerID)

	stored, err := e.st.Entities().Get(ctx, ts.ID)
	require.NoError(t, err)
	assert.True(t, stored.CreatedOffline)

	pending, err := e.q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	a := pending[0]
	assert.Equal(t, models.KindCreateTimesheet, a.Kind)
	assert.Equal(t, "/timesheets/create", a.Endpoint)
	assert.JSONEq(t, `{"year":2024,"month":3}`, string(a.Payload))
	assert.Zero(t, a.Retries)
	assert.Equal(t, ts.ID, a.EntityID)
}

func TestCreate_RejectsBadPeriod(t *testing.T) {
	e := newEnv(t)
	_, err := e.timesheets.Create(context.Background(), 2024, 13)
	require.ErrorIs(t, err, common.ErrorInvalidArgument)
	assert.Empty(t, e.api.Requests())
}

func TestSubmit_OfflineThenOnlineDrains(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.st.Entities().Put(ctx, &models.CachedEntity{ID: "7", OwnerID: "7", Status: models.StatusDraft}))

	src := monitor.NewManualSource()
	mon := monitor.New(src, logging.Discard())
	mon.Start()
	defer mon.Stop()

	engine := syncer.New(e.q, e.client, e.st.Metadata(), logging.Discard(), syncer.WithClock(e.clk.now))
	engine.Attach(ctx, mon)

	e.api.down.Store(true)
	res, err := e.timesheets.Submit(ctx, "7")
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, models.StatusPending, res.Timesheet.Status)

	pending, err := e.q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.KindSubmitTimesheet, pending[0].Kind)

	e.clk.advance(time.Minute)
	transition := e.clk.now()
	e.api.down.Store(false)
	src.Set(true)
	engine.Wait()

	n, err := e.q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, e.api.Requests(), "POST /api/v1/timesheets/7/submit")

	last, err := engine.LastSyncAttempt(ctx)
	require.NoError(t, err)
	assert.False(t, last.Before(transition))

	stored, err := e.st.Entities().Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, "7", stored.OwnerID)
}

func TestOfflineCreateThenSubmit_SyncsInOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.api.down.Store(true)

	created, err := e.timesheets.Create(ctx, 2024, 3)
	require.NoError(t, err)
	_, err = e.timesheets.Submit(ctx, created.Timesheet.ID)
	require.NoError(t, err)

	e.api.down.Store(false)
	engine := syncer.New(e.q, e.client, e.st.Metadata(), logging.Discard())
	rep, err := engine.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Replayed)

	reqs := e.api.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "POST /api/v1/timesheets/create", reqs[0])
	assert.Equal(t, "POST /api/v1/timesheets/101/submit", reqs[1])

	_, err = e.st.Entities().Get(ctx, created.Timesheet.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	final, err := e.st.Entities().Get(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, final.Status)
}

func TestQueuedChangesKeepOrderWhenOnline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.api.down.Store(true)
	_, err := e.timesheets.Submit(ctx, "3")
	require.NoError(t, err)

	e.api.down.Store(false)
	res, err := e.timesheets.Approve(ctx, "3", "looks good")
	require.NoError(t, err)
	assert.True(t, res.Queued, "must wait behind the queued submit")
	assert.Empty(t, e.api.Requests())

	pending, err := e.q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "/timesheets/3/approve?review_notes=looks+good", pending[1].Endpoint)
}

func TestMutation_ServerErrorIsNotQueued(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.timesheets.Reject(ctx, "3", "")
	require.ErrorIs(t, err, client.ErrRejected)

	n, err := e.q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdate_Empty(t *testing.T) {
	e := newEnv(t)
	_, err := e.timesheets.Update(context.Background(), "3", models.TimesheetUpdate{})
	require.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestUpdate_DisabledRefusesWithoutQueueing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	d := e.deps
	d.AllowUpdates = false
	ts := NewTimesheetService(d)

	hours := 120
	for _, down := range []bool{false, true} {
		e.api.down.Store(down)
		_, err := ts.Update(ctx, "5", models.TimesheetUpdate{TotalHours: &hours})
		require.ErrorIs(t, err, ErrUpdateUnsupported)
	}

	n, err := e.q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, e.api.Requests())
}

func TestUpdate_Online(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	hours := 120
	res, err := e.timesheets.Update(ctx, "5", models.TimesheetUpdate{TotalHours: &hours})
	require.NoError(t, err)
	assert.False(t, res.Queued)
	assert.Equal(t, []string{"PUT /api/v1/timesheets/5"}, e.api.Requests())
}

func TestGet_EscapesID(t *testing.T) {
	e := newEnv(t)

	_, err := e.timesheets.Get(context.Background(), "a/b")
	require.Error(t, err)
	assert.Equal(t, []string{"GET /api/v1/timesheets/a%2Fb"}, e.api.Requests())
}

func TestUpdate_OfflineMergesLocally(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.st.Entities().Put(ctx, &models.CachedEntity{ID: "5", Status: models.StatusDraft, Payload: json.RawMessage(`{"id":5,"status":"draft"}`)}))

	e.api.down.Store(true)
	hours := 120
	res, err := e.timesheets.Update(ctx, "5", models.TimesheetUpdate{TotalHours: &hours})
	require.NoError(t, err)
	require.True(t, res.Queued)

	ts, err := res.Timesheet.Timesheet()
	require.NoError(t, err)
	require.NotNil(t, ts.TotalHours)
	assert.Equal(t, 120.0, *ts.TotalHours)
}

func TestList_CachesAndServesOffline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	online, err := e.timesheets.List(ctx)
	require.NoError(t, err)
	require.Len(t, online, 2)

	local, err := e.timesheets.ListLocal(ctx)
	require.NoError(t, err)
	assert.Len(t, local, 2)

	e.api.down.Store(true)
	e.clk.advance(4 * time.Minute)
	cached, err := e.timesheets.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestList_StaleAfterTenMinutes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.timesheets.List(ctx)
	require.NoError(t, err)

	e.api.down.Store(true)
	e.clk.advance(10 * time.Minute)

	_, err = e.timesheets.List(ctx)
	require.ErrorIs(t, err, ErrStale)
}

func TestList_OfflineWithoutCache(t *testing.T) {
	e := newEnv(t)
	e.api.down.Store(true)

	_, err := e.timesheets.PendingReview(context.Background())
	require.ErrorIs(t, err, ErrStale)
}

func TestList_DoesNotOverwriteQueuedChanges(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.api.down.Store(true)
	_, err := e.timesheets.Submit(ctx, "1")
	require.NoError(t, err)

	e.api.down.Store(false)
	_, err = e.timesheets.List(ctx)
	require.NoError(t, err)

	local, err := e.st.Entities().Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, local.Status)
}

func TestGet_NotFoundIsReturned(t *testing.T) {
	e := newEnv(t)
	_, err := e.timesheets.Get(context.Background(), "404")
	require.ErrorIs(t, err, client.ErrRejected)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestGet_TempIDReadsLocal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.api.down.Store(true)

	created, err := e.timesheets.Create(ctx, 2024, 5)
	require.NoError(t, err)

	got, err := e.timesheets.Get(ctx, created.Timesheet.ID)
	require.NoError(t, err)
	assert.True(t, got.CreatedOffline)
}

func TestFeedback(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	f := models.Feedback{Category: "bug", Type: "comment", Title: "Sync badge wrong"}

	res, err := e.feedback.Submit(ctx, f)
	require.NoError(t, err)
	assert.False(t, res.Queued)

	e.api.down.Store(true)
	res, err = e.feedback.Submit(ctx, f)
	require.NoError(t, err)
	assert.True(t, res.Queued)

	_, err = e.feedback.Submit(ctx, models.Feedback{Category: "nope"})
	require.ErrorIs(t, err, models.ErrInvalidFeedback)
}

func TestAnalytics_MonthlyCachedThenStale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	online, err := e.analytics.Monthly(ctx, 2)
	require.NoError(t, err)
	assert.False(t, online.Cached)
	require.Len(t, online.Data, 2)
	assert.Equal(t, "Feb 2024", online.Data[0].Month)
	assert.Equal(t, 150.0, online.Data[0].TotalHours)
	assert.Equal(t, []string{"GET /api/v1/timesheets/analytics/monthly?months=2"}, e.api.Requests())

	e.api.down.Store(true)
	e.clk.advance(5 * time.Minute)
	cached, err := e.analytics.Monthly(ctx, 2)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, online.Data, cached.Data)

	// a different window is a different cache entry
	_, err = e.analytics.Monthly(ctx, 3)
	require.ErrorIs(t, err, ErrStale)

	e.clk.advance(time.Second)
	_, err = e.analytics.Monthly(ctx, 2)
	require.ErrorIs(t, err, ErrStale)
}

func TestAnalytics_DefaultMonths(t *testing.T) {
	e := newEnv(t)

	_, err := e.analytics.Monthly(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /api/v1/timesheets/analytics/monthly?months=6"}, e.api.Requests())
}

func TestAnalytics_TeamStatisticsOffline(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	stats, err := e.analytics.TeamStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.TeamStatistics{
		TotalTimesheets:   4,
		PendingCount:      2,
		ApprovedCount:     1,
		RejectedCount:     1,
		CurrentMonthHours: 80.5,
		OverdueCount:      1,
		TeamMemberCount:   3,
	}, stats.Data)

	e.api.down.Store(true)
	again, err := e.analytics.TeamStatistics(ctx)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, stats.Data, again.Data)
}

func TestAnalytics_TeamTimesheetsStatusFilter(t *testing.T) {
	e := newEnv(t)

	rep, err := e.analytics.TeamTimesheets(context.Background(), "pending")
	require.NoError(t, err)
	require.Len(t, rep.Data, 1)
	assert.Equal(t, models.StatusPending, rep.Data[0].Status)
	assert.Equal(t, "Ann", rep.Data[0].StaffName)
	assert.Equal(t, []string{"GET /api/v1/timesheets/team/all?status=pending"}, e.api.Requests())
}

func TestAnalytics_OfflineWithoutCache(t *testing.T) {
	e := newEnv(t)
	e.api.down.Store(true)

	_, err := e.analytics.TeamMonthly(context.Background(), 6)
	require.ErrorIs(t, err, ErrStale)
}
