package monitor

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/notify"
)

// ManualSource reports whatever Set is told. Used by --offline and tests.
type ManualSource struct {
	notify.Emitter[bool]
}

func NewManualSource() *ManualSource { return &ManualSource{} }

func (s *ManualSource) Set(online bool) { s.Emit(online) }

func (s *ManualSource) Run(ctx context.Context) { <-ctx.Done() }

type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeSource pings the server every interval and reports the outcome. It
// suits servers without a push endpoint.
type ProbeSource struct {
	notify.Emitter[bool]
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
}

func NewProbeSource(p Pinger, interval, timeout time.Duration) *ProbeSource {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProbeSource{pinger: p, interval: interval, timeout: timeout}
}

// Run probes once immediately, then on every tick.
func (s *ProbeSource) Run(ctx context.Context) {
	s.probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *ProbeSource) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.pinger.Ping(pctx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	s.Emit(err == nil)
}
