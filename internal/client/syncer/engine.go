// Package syncer replays queued actions against the server.
//
// An Engine drains the action queue when asked (ForceSync), when the
// network monitor reports a return to online, and optionally on a fixed
// interval. Only one drain runs at a time; a trigger that arrives while a
// drain is running returns at once with Report.Coalesced set.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/queue"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

type Report struct {
	queue.Report
	StartedAt time.Time `json:"started_at"`
	// Coalesced is set when the trigger joined a drain that was already running.
	Coalesced bool `json:"coalesced"`
}

// Connectivity is the part of the network monitor the engine listens to.
type Connectivity interface {
	OnConnectivityChange(h func(online bool)) (unsubscribe func())
}

type Engine struct {
	q      *queue.Queue
	c      client.Client
	meta   metadata.Repository
	logger logging.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	// drains started by Attach that have not returned yet
	inflight int
	idle     *sync.Cond
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(q *queue.Queue, c client.Client, meta metadata.Repository, logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{q: q, c: c, meta: meta, logger: logger, now: time.Now}
	e.idle = sync.NewCond(&e.mu)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Replay reissues a's request with the current credential. The client
// attaches the credential itself through its TokenSource.
func (e *Engine) Replay(ctx context.Context, a models.PendingAction) (queue.Result, error) {
	method, err := a.Kind.Method()
	if err != nil {
		return queue.Result{}, err
	}

	resp, err := e.c.Do(ctx, method, a.Endpoint, a.Payload)
	if err != nil {
		return queue.Result{}, err
	}

	if a.Kind == models.KindSubmitFeedback {
		return queue.Result{}, nil
	}
	return queue.Result{Entity: models.EntityFromResponse(resp, e.now().UTC())}, nil
}

// ForceSync drains the queue now. Replay failures are reflected in the
// report; only storage errors are returned.
func (e *Engine) ForceSync(ctx context.Context) (Report, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		e.logger.Debug(ctx, "sync already running, trigger coalesced")
		return Report{Coalesced: true}, nil
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	rep := Report{StartedAt: e.now().UTC()}
	if err := metadata.SetTime(ctx, e.meta, metadata.KeyLastSyncAttempt, rep.StartedAt); err != nil {
		return rep, fmt.Errorf("record sync attempt: %w", err)
	}

	qr, err := e.q.Drain(ctx, e.Replay)
	rep.Report = qr
	if err != nil {
		e.logger.Error(ctx, "sync failed", "error", err)
		return rep, err
	}

	e.logger.Info(ctx, "sync finished",
		"replayed", qr.Replayed, "failed", qr.Failed, "dropped", qr.Dropped,
		"skipped", qr.Skipped, "remaining", qr.Remaining, "aborted", qr.Aborted != nil)
	return rep, nil
}

// LastSyncAttempt returns when ForceSync last started, zero if never.
func (e *Engine) LastSyncAttempt(ctx context.Context) (time.Time, error) {
	return metadata.GetTime(ctx, e.meta, metadata.KeyLastSyncAttempt)
}

// Attach starts a drain in the background every time m reports online.
// Drains use ctx, so cancelling it stops them.
func (e *Engine) Attach(ctx context.Context, m Connectivity) (detach func()) {
	return m.OnConnectivityChange(func(online bool) {
		if !online {
			return
		}
		e.mu.Lock()
		e.inflight++
		e.mu.Unlock()
		go func() {
			defer e.finished()
			if _, err := e.ForceSync(ctx); err != nil {
				e.logger.Error(ctx, "sync after reconnect failed", "error", err)
			}
		}()
	})
}

// Run drains the queue every interval while online reports true, until ctx
// is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration, online func() bool) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !online() {
				continue
			}
			if _, err := e.ForceSync(ctx); err != nil {
				e.logger.Error(ctx, "periodic sync failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) finished() {
	e.mu.Lock()
	e.inflight--
	if e.inflight == 0 {
		e.idle.Broadcast()
	}
	e.mu.Unlock()
}

// Wait blocks until drains started by Attach have finished. It may be called
// while new drains are still being triggered.
func (e *Engine) Wait() {
	e.mu.Lock()
	for e.inflight > 0 {
		e.idle.Wait()
	}
	e.mu.Unlock()
}
