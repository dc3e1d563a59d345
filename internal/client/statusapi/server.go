// Package statusapi exposes the client's sync state over a small local HTTP
// API so a UI running next to the client can show it and trigger a sync.
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/gorilla/mux"
)

type StatusProvider interface {
	GetSyncStatus(ctx context.Context) (models.SyncStatus, error)
}

type Syncer interface {
	ForceSync(ctx context.Context) (syncer.Report, error)
}

type LocalTimesheets interface {
	ListLocal(ctx context.Context) ([]*models.CachedEntity, error)
}

type Server struct {
	address    string
	status     StatusProvider
	sync       Syncer
	timesheets LocalTimesheets
	logger     logging.Logger
}

func NewServer(address string, st StatusProvider, sy Syncer, ts LocalTimesheets, l logging.Logger) *Server {
	return &Server{
		address:    address,
		status:     st,
		sync:       sy,
		timesheets: ts,
		logger:     l.With("module", "status_api"),
	}
}

// Router returns the API routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/sync/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/sync/now", s.handleSyncNow).Methods(http.MethodPost)
	r.HandleFunc("/timesheets", s.handleTimesheets).Methods(http.MethodGet)
	return r
}

// Run serves until ctx is done, then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping status API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting status API", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status.GetSyncStatus(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSyncNow(w http.ResponseWriter, r *http.Request) {
	rep, err := s.sync.ForceSync(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportBody(rep))
}

func (s *Server) handleTimesheets(w http.ResponseWriter, r *http.Request) {
	items, err := s.timesheets.ListLocal(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if items == nil {
		items = []*models.CachedEntity{}
	}
	writeJSON(w, http.StatusOK, items)
}

type syncReport struct {
	Replayed  int       `json:"replayed"`
	Failed    int       `json:"failed"`
	Dropped   int       `json:"dropped"`
	Skipped   int       `json:"skipped"`
	Remaining int       `json:"remaining"`
	Aborted   string    `json:"aborted,omitempty"`
	Coalesced bool      `json:"coalesced"`
	StartedAt time.Time `json:"started_at"`
}

func reportBody(r syncer.Report) syncReport {
	out := syncReport{
		Replayed:  r.Replayed,
		Failed:    r.Failed,
		Dropped:   r.Dropped,
		Skipped:   r.Skipped,
		Remaining: r.Remaining,
		Coalesced: r.Coalesced,
		StartedAt: r.StartedAt,
	}
	if r.Aborted != nil {
		out.Aborted = r.Aborted.Error()
	}
	return out
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "status api request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "status api request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
