package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

const defaultMonths = 6

// Report is an analytics result. Cached is set when the server was
// unreachable and Data came from a fresh cached response.
type Report[T any] struct {
	Data   T
	Cached bool
}

// AnalyticsService reads the server's summary endpoints. Reads are network
// first with the response cache as fallback, the same as timesheet reads.
// The team endpoints are for supervisors; others get client.ErrRejected.
type AnalyticsService interface {
	Monthly(ctx context.Context, months int) (Report[[]models.MonthlyStat], error)
	TeamMonthly(ctx context.Context, months int) (Report[[]models.MonthlyStat], error)
	TeamStatistics(ctx context.Context) (Report[models.TeamStatistics], error)
	// TeamTimesheets lists staff timesheets, optionally only those in status.
	TeamTimesheets(ctx context.Context, status string) (Report[[]models.TeamTimesheet], error)
}

type analyticsService struct {
	ts *timesheetService
}

// NewAnalyticsService uses the Client, Cache and Logger of d.
func NewAnalyticsService(d Deps) AnalyticsService {
	return &analyticsService{ts: newTimesheetService(d)}
}

func (s *analyticsService) Monthly(ctx context.Context, months int) (Report[[]models.MonthlyStat], error) {
	return fetch[[]models.MonthlyStat](ctx, s.ts, withMonths("/timesheets/analytics/monthly", months))
}

func (s *analyticsService) TeamMonthly(ctx context.Context, months int) (Report[[]models.MonthlyStat], error) {
	return fetch[[]models.MonthlyStat](ctx, s.ts, withMonths("/timesheets/analytics/team-monthly", months))
}

func (s *analyticsService) TeamStatistics(ctx context.Context) (Report[models.TeamStatistics], error) {
	return fetch[models.TeamStatistics](ctx, s.ts, "/timesheets/team/statistics")
}

func (s *analyticsService) TeamTimesheets(ctx context.Context, status string) (Report[[]models.TeamTimesheet], error) {
	endpoint := "/timesheets/team/all"
	if status != "" {
		endpoint += "?" + url.Values{"status": {status}}.Encode()
	}
	return fetch[[]models.TeamTimesheet](ctx, s.ts, endpoint)
}

func withMonths(endpoint string, months int) string {
	if months < 1 {
		months = defaultMonths
	}
	return endpoint + "?" + url.Values{"months": {strconv.Itoa(months)}}.Encode()
}

func fetch[T any](ctx context.Context, s *timesheetService, endpoint string) (Report[T], error) {
	raw, fresh, err := s.read(ctx, endpoint)
	if err != nil {
		return Report[T]{}, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return Report[T]{}, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return Report[T]{Data: out, Cached: !fresh}, nil
}
