// Package monitor tracks whether the server is reachable.
//
// The Monitor holds one of two states, online or offline, and changes it
// only when its Source reports a different state. Entering online notifies
// subscribers (the sync engine drains the queue) and posts a transient
// notice; entering offline only posts a notice. The Monitor never polls by
// itself; polling, if any, lives in the Source.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/notify"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

// Source produces connectivity reports. Run drives the source until ctx is
// done; sources that need no driving simply block.
type Source interface {
	Subscribe(h func(online bool)) (unsubscribe func())
	Run(ctx context.Context)
}

type QueueCounter interface {
	Len(ctx context.Context) (int, error)
}

type SyncClock interface {
	LastSyncAttempt(ctx context.Context) (time.Time, error)
}

type StorageHealth interface {
	Degraded() bool
}

type Monitor struct {
	src      Source
	logger   logging.Logger
	notifier notify.Notifier
	now      func() time.Time

	queue   QueueCounter
	clock   SyncClock
	storage StorageHealth

	mu          sync.RWMutex
	online      bool
	unsubscribe func()

	changes notify.Emitter[bool]
}

type Option func(*Monitor)

func WithNotifier(n notify.Notifier) Option {
	return func(m *Monitor) { m.notifier = n }
}

// WithStatus wires the collaborators GetSyncStatus reads from. Any of them
// may be nil.
func WithStatus(q QueueCounter, c SyncClock, s StorageHealth) Option {
	return func(m *Monitor) {
		m.queue, m.clock, m.storage = q, c, s
	}
}

// WithInitialState sets the state assumed before the source's first report.
// The default is offline, so a first online report triggers a drain.
func WithInitialState(online bool) Option {
	return func(m *Monitor) { m.online = online }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func New(src Source, logger logging.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		src:      src,
		logger:   logger,
		notifier: notify.Discard,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to the source. Calling Start twice has no extra effect.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribe != nil {
		return
	}
	m.unsubscribe = m.src.Subscribe(m.Report)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Report applies a connectivity report. Reports that repeat the current
// state are ignored.
func (m *Monitor) Report(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	ctx := context.Background()
	if online {
		m.logger.Info(ctx, "connectivity changed", "online", true)
		m.notifier.Notify(ctx, notify.Notice{Level: notify.LevelInfo, Message: "Back online, syncing pending changes", At: m.now()})
	} else {
		m.logger.Warn(ctx, "connectivity changed", "online", false)
		m.notifier.Notify(ctx, notify.Notice{Level: notify.LevelWarn, Message: "Working offline, changes will sync later", At: m.now()})
	}
	m.changes.Emit(online)
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnConnectivityChange subscribes h to state transitions.
func (m *Monitor) OnConnectivityChange(h func(online bool)) (unsubscribe func()) {
	return m.changes.Subscribe(h)
}

// GetSyncStatus returns a snapshot for the UI.
func (m *Monitor) GetSyncStatus(ctx context.Context) (models.SyncStatus, error) {
	st := models.SyncStatus{IsOnline: m.IsOnline()}

	if m.queue != nil {
		n, err := m.queue.Len(ctx)
		if err != nil {
			return st, fmt.Errorf("count pending actions: %w", err)
		}
		st.PendingActions = n
	}
	if m.clock != nil {
		t, err := m.clock.LastSyncAttempt(ctx)
		if err != nil {
			return st, fmt.Errorf("read last sync attempt: %w", err)
		}
		st.LastSyncAttempt = t
	}
	if m.storage != nil {
		st.Degraded = m.storage.Degraded()
	}
	return st, nil
}
