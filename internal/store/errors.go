package store

import "errors"

// ErrNotFound is returned when a requested lead does not exist in the store.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status change would move a lead
// backwards or to an unknown status.
var ErrInvalidTransition = errors.New("invalid status transition")
