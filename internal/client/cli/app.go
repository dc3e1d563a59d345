package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/auth"
	"github.com/dmitrijs2005/timekeeper/internal/client/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/dmitrijs2005/timekeeper/internal/client/monitor"
	"github.com/dmitrijs2005/timekeeper/internal/client/notify"
	"github.com/dmitrijs2005/timekeeper/internal/client/queue"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/client/store"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
)

const probeTimeout = 3 * time.Second

// App wires the offline layer together for one command invocation.
type App struct {
	config *config.Config
	logger logging.Logger
	reader *bufio.Reader
	out    io.Writer

	store       *store.Store
	api         client.Client
	credentials *auth.Store
	authService *auth.Service
	queue       *queue.Queue
	cache       *cache.Cache
	engine      *syncer.Engine
	monitor     *monitor.Monitor
	source      monitor.Source
	notices     *notify.ChannelNotifier

	timesheets services.TimesheetService
	analytics  services.AnalyticsService
	feedback   services.FeedbackService
}

// NewApp opens the local state and builds every component. Logs go to logOut.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out, logOut io.Writer) (*App, error) {
	logger := logging.New(c.LogLevel, c.LogFormat, logOut)

	st := store.Open(ctx, c.StatePath, logger)
	credentials := auth.NewStore(st.Metadata(), nil)

	var api client.Client
	if c.Connectivity == config.ConnectivityOffline {
		api = client.Offline()
	} else {
		hc, err := client.NewHTTPClient(c.ServerURL, credentials, client.WithTimeout(c.RequestTimeout))
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("api client: %w", err)
		}
		api = hc
	}

	a := &App{
		config:      c,
		logger:      logger,
		reader:      bufio.NewReader(in),
		out:         out,
		store:       st,
		api:         api,
		credentials: credentials,
		authService: auth.NewService(credentials, api, logger),
		notices:     notify.NewChannelNotifier(16),
	}

	a.queue = queue.New(st, logger, queue.WithMaxRetries(c.MaxRetries))
	a.cache = cache.New(st.Cache(), cache.WithDefaultTTL(c.CacheTTL))
	a.engine = syncer.New(a.queue, api, st.Metadata(), logger)

	a.source = a.newSource()
	a.monitor = monitor.New(a.source, logger,
		monitor.WithNotifier(notify.Multi{notify.LogNotifier{Logger: logger}, a.notices}),
		monitor.WithStatus(a.queue, a.engine, st),
	)

	a.queue.OnDropped(func(ev queue.DropEvent) {
		msg := fmt.Sprintf("Gave up on %s for %s after %d attempts", ev.Action.Kind, ev.Action.EntityID, ev.Action.Retries)
		if ev.Cascade {
			msg = fmt.Sprintf("Discarded %s for %s because the change it depends on failed", ev.Action.Kind, ev.Action.EntityID)
		}
		a.notices.Notify(context.Background(), notify.Notice{Level: notify.LevelWarn, Message: msg, At: time.Now()})
	})

	deps := services.Deps{
		Client:   api,
		Entities: st.Entities(),
		Actions:  st.Actions(),
		Queue:    a.queue,
		Cache:    a.cache,
		Owner:    a.owner,
		Logger:   logger,

		AllowUpdates: c.UpdatesEnabled,
	}
	a.timesheets = services.NewTimesheetService(deps)
	a.analytics = services.NewAnalyticsService(deps)
	a.feedback = services.NewFeedbackService(api, a.queue, logger)

	return a, nil
}

func (a *App) newSource() monitor.Source {
	switch a.config.Connectivity {
	case config.ConnectivityWebsocket:
		return monitor.NewWebsocketSource(a.config.WebsocketURL(), a.credentials, a.logger)
	case config.ConnectivityProbe:
		return monitor.NewProbeSource(a.api, a.config.OnlineCheckInterval, probeTimeout)
	default:
		return monitor.NewManualSource()
	}
}

func (a *App) owner(ctx context.Context) (string, error) {
	claims, err := a.credentials.Claims(ctx)
	if err != nil {
		return "", fmt.Errorf("not logged in: %w", err)
	}
	return claims.OwnerID, nil
}

// Start runs the network monitor and lets it trigger drains until ctx is
// done. The returned function waits for background work to finish.
func (a *App) Start(ctx context.Context) (wait func()) {
	a.monitor.Start()
	detach := a.engine.Attach(ctx, a.monitor)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.source.Run(ctx)
	}()

	if a.config.SyncInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.engine.Run(ctx, a.config.SyncInterval, a.monitor.IsOnline)
		}()
	}

	return func() {
		wg.Wait()
		detach()
		a.monitor.Stop()
		a.engine.Wait()
	}
}

// checkOnline probes the server once and feeds the result to the monitor.
func (a *App) checkOnline(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	online := a.api.Ping(ctx) == nil
	a.monitor.Report(online)
	return online
}

func (a *App) Close() error {
	_ = a.api.Close()
	return a.store.Close()
}
