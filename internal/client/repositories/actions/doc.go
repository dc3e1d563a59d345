// Package actions persists the queue of mutations that have not reached the
// server yet.
//
// Rows get an autoincrement id on first Put; GetAll returns them in FIFO
// order (creation time, then id), which is the order the sync engine replays
// them in. Secondary indexes: IndexKind and IndexEntity.
package actions
