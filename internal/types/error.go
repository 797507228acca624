package types

import "errors"

var ErrNotFound = errors.New("not found")

// ErrNoRows is returned when a conditional update matched nothing because
// the row exists but is no longer in the required state.
var ErrNoRows = errors.New("no records found")
