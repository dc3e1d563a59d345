// Package store is the client's local durable store.
//
// A Store bundles the four collections (timesheets, pending actions, cache
// entries, metadata) behind one handle that is opened once at start-up and
// passed to every component that needs it. Each repository call is its own
// transaction; WithTx groups several calls atomically.
//
// # Degraded mode
//
// If SQLite cannot be opened, or a call fails at the storage layer, the
// Store logs a warning, copies whatever it can still read into memory and
// keeps serving from an in-memory backend for the rest of the session. The
// failing call is retried once against memory. Logical errors such as
// common.ErrorNotFound never trigger the switch.
package store
