// Package cli provides the timekeeper command-line client.
//
// Every command builds an App from the configuration: the local store, the
// API client, the action queue, the response cache, the sync engine and the
// network monitor. One-shot commands (create, submit, list, ...) go through
// the timesheet services, which queue changes while the server is
// unreachable. The long-running commands, watch and serve, also start the
// network monitor so queued changes are replayed as soon as the server is
// back.
package cli
