package services

import "errors"

// ErrStale means the server is unreachable and no fresh cached copy exists.
var ErrStale = errors.New("offline and no fresh cached data")

// ErrUpdateUnsupported means timesheet edits are disabled because the server
// does not serve PUT /timesheets/{id}.
var ErrUpdateUnsupported = errors.New("timesheet updates are not enabled for this server")
