package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: no document, status record or audit entry under the key
//   - ErrAlreadyUsed: the key was taken by an earlier write (keys are never reassigned)
//   - ErrConflict: a concurrent writer changed the row between read and write
//   - ErrUnavailable: backing service (database, cache, broker) unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
