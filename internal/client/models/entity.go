// Package models defines the records kept by the client-side offline layer:
// cached server entities, pending actions and cached read responses.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimesheetStatus mirrors the server's timesheet workflow.
type TimesheetStatus string

const (
	StatusDraft    TimesheetStatus = "draft"
	StatusPending  TimesheetStatus = "pending"
	StatusApproved TimesheetStatus = "approved"
	StatusRejected TimesheetStatus = "rejected"
)

// CachedEntity is a locally stored copy of a server-owned timesheet.
//
// Payload keeps the server representation verbatim so fields the client does
// not model survive a round trip. ID may be a temporary client id (see
// common.TempIDPrefix) until the create action is replayed.
type CachedEntity struct {
	ID             string          `json:"id"`
	OwnerID        string          `json:"owner_id"`
	Status         TimesheetStatus `json:"status"`
	Payload        json.RawMessage `json:"payload"`
	CreatedOffline bool            `json:"created_offline"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Timesheet is the typed view of a CachedEntity payload.
type Timesheet struct {
	ID             string          `json:"-"`
	Status         TimesheetStatus `json:"status"`
	PeriodStart    string          `json:"period_start,omitempty"`
	PeriodEnd      string          `json:"period_end,omitempty"`
	GoogleSheetURL string          `json:"google_sheet_url,omitempty"`
	TotalHours     *float64        `json:"total_hours,omitempty"`
	ReviewNotes    *string         `json:"review_notes,omitempty"`
	Year           int             `json:"year,omitempty"`
	Month          int             `json:"month,omitempty"`
}

// EntityFromServer builds a CachedEntity from one server timesheet object.
// The server sends numeric ids; they are kept as decimal strings.
func EntityFromServer(raw json.RawMessage, now time.Time) (*CachedEntity, error) {
	var head struct {
		ID     any    `json:"id"`
		UserID any    `json:"user_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode timesheet: %w", err)
	}
	id := scalarString(head.ID)
	if id == "" {
		return nil, fmt.Errorf("decode timesheet: missing id")
	}

	payload := make(json.RawMessage, len(raw))
	copy(payload, raw)

	return &CachedEntity{
		ID:        id,
		OwnerID:   scalarString(head.UserID),
		Status:    TimesheetStatus(head.Status),
		Payload:   payload,
		UpdatedAt: now,
	}, nil
}

// EntityFromResponse extracts the timesheet from a mutation response. The
// server answers either with the timesheet itself or with an envelope
// {"message": ..., "timesheet": {...}}. It returns nil when the response
// carries no timesheet.
func EntityFromResponse(raw json.RawMessage, now time.Time) *CachedEntity {
	if len(raw) == 0 {
		return nil
	}
	var env struct {
		Timesheet json.RawMessage `json:"timesheet"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Timesheet) > 0 && string(env.Timesheet) != "null" {
		raw = env.Timesheet
	}
	e, err := EntityFromServer(raw, now)
	if err != nil {
		return nil
	}
	return e
}

// EntitiesFromServer decodes a JSON array of timesheets.
func EntitiesFromServer(raw json.RawMessage, now time.Time) ([]*CachedEntity, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode timesheet list: %w", err)
	}
	result := make([]*CachedEntity, 0, len(items))
	for _, item := range items {
		e, err := EntityFromServer(item, now)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// Merge overlays fields onto the payload. A "status" field also moves Status.
func (e *CachedEntity) Merge(fields map[string]any) error {
	current := map[string]any{}
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &current); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	for k, v := range fields {
		current[k] = v
	}
	if s, ok := fields["status"].(string); ok {
		e.Status = TimesheetStatus(s)
	}

	b, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	e.Payload = b
	return nil
}

// Rekey moves the entity to its server-assigned id and records it in the payload.
func (e *CachedEntity) Rekey(serverID string) error {
	e.ID = serverID
	return e.Merge(map[string]any{"id": serverID})
}

func (e *CachedEntity) Timesheet() (Timesheet, error) {
	var t Timesheet
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &t); err != nil {
			return Timesheet{}, fmt.Errorf("decode timesheet payload: %w", err)
		}
	}
	t.ID = e.ID
	if e.Status != "" {
		t.Status = e.Status
	}
	return t, nil
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
