package monitor

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/notify"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"nhooyr.io/websocket"
)

// WebsocketSource holds a websocket open to the server: connected means
// online, a failed dial or read means offline. It reconnects with
// exponential backoff and jitter.
type WebsocketSource struct {
	notify.Emitter[bool]

	url       string
	tokens    client.TokenSource
	logger    logging.Logger
	heartbeat time.Duration
	recon     *reconnector
}

type WebsocketOption func(*WebsocketSource)

// WithBackoff sets the first and the largest reconnect delay.
func WithBackoff(base, max time.Duration) WebsocketOption {
	return func(s *WebsocketSource) {
		s.recon = &reconnector{baseDelay: base, maxDelay: max}
	}
}

func WithHeartbeat(d time.Duration) WebsocketOption {
	return func(s *WebsocketSource) { s.heartbeat = d }
}

// NewWebsocketSource dials url (ws:// or wss://). tokens may be nil; when
// set, the credential is sent as a bearer header on each dial.
func NewWebsocketSource(url string, tokens client.TokenSource, logger logging.Logger, opts ...WebsocketOption) *WebsocketSource {
	s := &WebsocketSource{
		url:       url,
		tokens:    tokens,
		logger:    logger,
		heartbeat: 30 * time.Second,
		recon:     &reconnector{baseDelay: time.Second, maxDelay: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *WebsocketSource) Run(ctx context.Context) {
	for {
		s.session(ctx)
		if ctx.Err() != nil {
			return
		}

		delay := s.recon.nextDelay()
		s.logger.Debug(ctx, "websocket reconnect scheduled", "attempt", s.recon.attempt, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// session dials once and reads until the connection breaks.
func (s *WebsocketSource) session(ctx context.Context) {
	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if s.tokens != nil {
		if token, err := s.tokens.Token(ctx); err == nil {
			opts.HTTPHeader.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
	}

	conn, _, err := websocket.Dial(ctx, s.url, opts)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug(ctx, "websocket dial failed", "url", s.url, "error", err)
			s.Emit(false)
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	s.recon.reset()
	s.Emit(true)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.heartbeatLoop(connCtx, conn)

	for {
		if _, _, err := conn.Read(connCtx); err != nil {
			if ctx.Err() == nil {
				s.logger.Debug(ctx, "websocket closed", "error", err)
				s.Emit(false)
			}
			return
		}
	}
}

func (s *WebsocketSource) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	if s.heartbeat <= 0 {
		return
	}
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, s.heartbeat)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				_ = conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
		}
	}
}

type reconnector struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	attempt   int
}

func (r *reconnector) nextDelay() time.Duration {
	jitter := time.Duration(rand.Float64() * float64(r.baseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(r.baseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(r.maxDelay),
	))
	r.attempt++
	return delay
}

func (r *reconnector) reset() {
	r.attempt = 0
}
