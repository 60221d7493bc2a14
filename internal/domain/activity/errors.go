package activity

import "errors"

// ErrDuplicate is returned by Ledger.Append when a record with the same
// SourceEventID is already stored. Callers treat it as success without a
// write, never as a failure.
var ErrDuplicate = errors.New("activity: duplicate source event id")
