package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates a uniqueness or state conflict (HTTP 409),
// e.g. an assignment that is already terminal.
var ErrConflict = errors.New("conflict")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrIllegalTransition indicates that the requested parcel status change
// is structurally impossible from the current status. Retrying can not
// succeed, so callers must drop the request instead of redelivering it.
var ErrIllegalTransition = errors.New("illegal status transition")
