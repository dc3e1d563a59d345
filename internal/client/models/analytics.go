package models

// MonthlyStat is one month of an analytics series. The server returns the
// series oldest month first.
type MonthlyStat struct {
	Month          string  `json:"month"`
	TotalHours     float64 `json:"total_hours"`
	SubmittedCount int     `json:"submitted_count"`
	ApprovedCount  int     `json:"approved_count"`
	PendingCount   int     `json:"pending_count,omitempty"`
	Timesheets     int     `json:"timesheets"`
	ActiveStaff    int     `json:"active_staff,omitempty"`
}

// TeamStatistics summarises the timesheets of a supervisor's staff.
type TeamStatistics struct {
	TotalTimesheets   int     `json:"total_timesheets"`
	PendingCount      int     `json:"pending_count"`
	ApprovedCount     int     `json:"approved_count"`
	RejectedCount     int     `json:"rejected_count"`
	CurrentMonthHours float64 `json:"current_month_hours"`
	OverdueCount      int     `json:"overdue_count"`
	TeamMemberCount   int     `json:"team_member_count"`
}

// TeamTimesheet is a staff member's timesheet as a supervisor sees it.
type TeamTimesheet struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	StaffName   string          `json:"staff_name"`
	StaffEmail  string          `json:"staff_email"`
	PeriodStart string          `json:"period_start,omitempty"`
	PeriodEnd   string          `json:"period_end,omitempty"`
	Status      TimesheetStatus `json:"status"`
	TotalHours  float64         `json:"total_hours"`
	ReviewNotes *string         `json:"review_notes,omitempty"`
}
