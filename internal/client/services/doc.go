// Package services is the request interceptor the CLI and the status API
// call instead of the raw API client.
//
// Reads go to the network first. A successful response refreshes the
// response cache and the local timesheet store; when the server is
// unreachable the cached response is returned, or ErrStale when there is
// none that is still fresh. Stale data is never served silently.
//
// Mutations also go to the network first. When the server is unreachable
// the change is applied optimistically to the local store and queued for
// replay, and the call succeeds with Result.Queued set. Any other error
// from the server is returned and nothing is queued.
package services
