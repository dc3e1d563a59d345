package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func renderTimesheets(items []*models.CachedEntity) string {
	if len(items) == 0 {
		return "No timesheets"
	}
	t := newTable("ID", "PERIOD", "STATUS", "HOURS", "")
	for _, e := range items {
		ts, err := e.Timesheet()
		if err != nil {
			t.Row(e.ID, "?", string(e.Status), "", "unreadable")
			continue
		}
		t.Row(e.ID, period(ts), string(ts.Status), hours(ts.TotalHours), flags(e))
	}
	return t.String()
}

func period(ts models.Timesheet) string {
	switch {
	case ts.PeriodStart != "":
		return ts.PeriodStart + " .. " + ts.PeriodEnd
	case ts.Year > 0:
		return fmt.Sprintf("%04d-%02d", ts.Year, ts.Month)
	default:
		return ""
	}
}

func hours(h *float64) string {
	if h == nil {
		return ""
	}
	return strconv.FormatFloat(*h, 'f', -1, 64)
}

func flags(e *models.CachedEntity) string {
	if e.CreatedOffline {
		return "not synced"
	}
	return ""
}

func renderActions(items []*models.PendingAction) string {
	t := newTable("#", "KIND", "ENDPOINT", "QUEUED", "RETRIES", "LAST ERROR")
	for _, a := range items {
		endpoint := a.Endpoint
		if a.DependsOn != 0 {
			endpoint += fmt.Sprintf(" (after #%d)", a.DependsOn)
		}
		t.Row(
			strconv.FormatInt(a.ID, 10),
			string(a.Kind),
			endpoint,
			a.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(a.Retries),
			a.LastError,
		)
	}
	return t.String()
}

func renderStatus(st models.SyncStatus) string {
	conn := "offline"
	if st.IsOnline {
		conn = "online"
	}
	last := "never"
	if !st.LastSyncAttempt.IsZero() {
		last = st.LastSyncAttempt.Local().Format(time.DateTime)
	}
	s := fmt.Sprintf("Connection: %s\nPending:    %d\nLast sync:  %s", conn, st.PendingActions, last)
	if st.Degraded {
		s += "\nStorage:    in memory only, changes are lost on exit"
	}
	return s
}

func renderMonthly(items []models.MonthlyStat, team bool) string {
	if len(items) == 0 {
		return "No data"
	}
	headers := []string{"MONTH", "HOURS", "TIMESHEETS", "SUBMITTED", "APPROVED"}
	if team {
		headers = append(headers, "PENDING", "STAFF")
	}
	t := newTable(headers...)
	for _, m := range items {
		row := []string{
			m.Month,
			strconv.FormatFloat(m.TotalHours, 'f', -1, 64),
			strconv.Itoa(m.Timesheets),
			strconv.Itoa(m.SubmittedCount),
			strconv.Itoa(m.ApprovedCount),
		}
		if team {
			row = append(row, strconv.Itoa(m.PendingCount), strconv.Itoa(m.ActiveStaff))
		}
		t.Row(row...)
	}
	return t.String()
}

func renderTeamStatistics(s models.TeamStatistics) string {
	return fmt.Sprintf("Team members: %d\nTimesheets:   %d (%d pending, %d approved, %d rejected)\nOverdue:      %d\nThis month:   %s hours",
		s.TeamMemberCount, s.TotalTimesheets, s.PendingCount, s.ApprovedCount, s.RejectedCount,
		s.OverdueCount, strconv.FormatFloat(s.CurrentMonthHours, 'f', -1, 64))
}

func renderTeamTimesheets(items []models.TeamTimesheet) string {
	if len(items) == 0 {
		return "No timesheets"
	}
	t := newTable("ID", "STAFF", "PERIOD", "STATUS", "HOURS")
	for _, ts := range items {
		p := ""
		if ts.PeriodStart != "" {
			p = ts.PeriodStart + " .. " + ts.PeriodEnd
		}
		t.Row(
			strconv.FormatInt(ts.ID, 10),
			ts.StaffName,
			p,
			string(ts.Status),
			strconv.FormatFloat(ts.TotalHours, 'f', -1, 64),
		)
	}
	return t.String()
}
