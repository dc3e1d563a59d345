package models

import "time"

// SyncStatus is a point-in-time snapshot for the UI.
// LastSyncAttempt is zero until the first drain.
type SyncStatus struct {
	IsOnline        bool      `json:"is_online"`
	PendingActions  int       `json:"pending_actions"`
	LastSyncAttempt time.Time `json:"last_sync_attempt"`
	Degraded        bool      `json:"storage_degraded"`
}
