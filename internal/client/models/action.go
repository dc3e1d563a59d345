package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrUnknownActionKind = errors.New("unknown action kind")

// ActionKind is the closed set of mutations the client can queue.
type ActionKind string

const (
	KindCreateTimesheet  ActionKind = "create_timesheet"
	KindSubmitTimesheet  ActionKind = "submit_timesheet"
	KindUpdateTimesheet  ActionKind = "update_timesheet"
	KindApproveTimesheet ActionKind = "approve_timesheet"
	KindRejectTimesheet  ActionKind = "reject_timesheet"
	KindSubmitFeedback   ActionKind = "submit_feedback"
)

// ParseActionKind validates a persisted kind.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if _, err := k.Method(); err != nil {
		return "", err
	}
	return k, nil
}

// Method returns the HTTP method used to replay actions of this kind.
func (k ActionKind) Method() (string, error) {
	switch k {
	case KindCreateTimesheet, KindSubmitTimesheet, KindApproveTimesheet,
		KindRejectTimesheet, KindSubmitFeedback:
		return http.MethodPost, nil
	case KindUpdateTimesheet:
		return http.MethodPut, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownActionKind, string(k))
	}
}

// PendingAction is one mutation that has not been confirmed by the server.
//
// Retries only grows when a replay fails. DependsOn points at the local id of
// the queued action that creates EntityID; zero means no dependency.
type PendingAction struct {
	ID        int64           `json:"id"`
	Kind      ActionKind      `json:"kind"`
	Endpoint  string          `json:"endpoint"`
	Payload   json.RawMessage `json:"payload"`
	EntityID  string          `json:"entity_id,omitempty"`
	DependsOn int64           `json:"depends_on,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Retries   int             `json:"retries"`
	LastError string          `json:"last_error,omitempty"`
}

// TimesheetUpdate is the partial update accepted by PUT /timesheets/{id}.
type TimesheetUpdate struct {
	Status      *string `json:"status,omitempty"`
	ReviewNotes *string `json:"review_notes,omitempty"`
	TotalHours  *int    `json:"total_hours,omitempty"`
}

// Fields returns the non-nil members as a map, for optimistic merges.
func (u TimesheetUpdate) Fields() map[string]any {
	m := map[string]any{}
	if u.Status != nil {
		m["status"] = *u.Status
	}
	if u.ReviewNotes != nil {
		m["review_notes"] = *u.ReviewNotes
	}
	if u.TotalHours != nil {
		m["total_hours"] = *u.TotalHours
	}
	return m
}

func NewCreateTimesheet(entityID string, year, month int) PendingAction {
	return PendingAction{
		Kind:     KindCreateTimesheet,
		Endpoint: "/timesheets/create",
		Payload:  mustJSON(map[string]int{"year": year, "month": month}),
		EntityID: entityID,
	}
}

func NewSubmitTimesheet(id string) PendingAction {
	return PendingAction{
		Kind:     KindSubmitTimesheet,
		Endpoint: TimesheetPath(id, "submit"),
		Payload:  json.RawMessage(`{}`),
		EntityID: id,
	}
}

func NewUpdateTimesheet(id string, u TimesheetUpdate) PendingAction {
	return PendingAction{
		Kind:     KindUpdateTimesheet,
		Endpoint: TimesheetPath(id, ""),
		Payload:  mustJSON(u),
		EntityID: id,
	}
}

func NewApproveTimesheet(id, notes string) PendingAction {
	return PendingAction{
		Kind:     KindApproveTimesheet,
		Endpoint: withNotes(TimesheetPath(id, "approve"), notes),
		Payload:  json.RawMessage(`{}`),
		EntityID: id,
	}
}

func NewRejectTimesheet(id, notes string) PendingAction {
	return PendingAction{
		Kind:     KindRejectTimesheet,
		Endpoint: withNotes(TimesheetPath(id, "reject"), notes),
		Payload:  json.RawMessage(`{}`),
		EntityID: id,
	}
}

func NewSubmitFeedback(f Feedback) PendingAction {
	return PendingAction{
		Kind:     KindSubmitFeedback,
		Endpoint: "/feedback/",
		Payload:  mustJSON(f),
	}
}

// Rebind points the action at serverID instead of tempID and clears the
// dependency edge. Only whole path segments equal to tempID are replaced.
func (a *PendingAction) Rebind(tempID, serverID string) {
	if a.EntityID == tempID {
		a.EntityID = serverID
	}
	path, query, hasQuery := strings.Cut(a.Endpoint, "?")
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s == tempID {
			segs[i] = url.PathEscape(serverID)
		}
	}
	a.Endpoint = strings.Join(segs, "/")
	if hasQuery {
		a.Endpoint += "?" + query
	}
	a.DependsOn = 0
}

// TimesheetPath returns the endpoint of timesheet id, optionally followed by
// a verb segment such as "submit".
func TimesheetPath(id, verb string) string {
	p := "/timesheets/" + url.PathEscape(id)
	if verb != "" {
		p += "/" + verb
	}
	return p
}

func withNotes(endpoint, notes string) string {
	if notes == "" {
		return endpoint
	}
	return endpoint + "?" + url.Values{"review_notes": {notes}}.Encode()
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("models: marshal %T: %v", v, err))
	}
	return b
}
