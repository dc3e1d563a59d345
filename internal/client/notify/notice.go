package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarn
)

func (l Level) String() string {
	if l == LevelWarn {
		return "warn"
	}
	return "info"
}

// Notice is a short, user-facing message such as "Back online".
type Notice struct {
	Level   Level
	Message string
	At      time.Time
}

type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Logger logging.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notice) {
	if n.Level == LevelWarn {
		l.Logger.Warn(ctx, n.Message)
		return
	}
	l.Logger.Info(ctx, n.Message)
}

// ChannelNotifier forwards notices to C without blocking; a notice is dropped
// when nobody is reading.
type ChannelNotifier struct {
	C chan Notice
}

func NewChannelNotifier(buffer int) *ChannelNotifier {
	return &ChannelNotifier{C: make(chan Notice, buffer)}
}

func (c *ChannelNotifier) Notify(_ context.Context, n Notice) {
	select {
	case c.C <- n:
	default:
	}
}

// Multi delivers each notice to every notifier in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, x := range m {
		x.Notify(ctx, n)
	}
}

// Discard drops every notice.
var Discard Notifier = NotifierFunc(func(context.Context, Notice) {})
