package store

import "errors"

var (
	// ErrNotFound is returned when a row does not exist or is owned by
	// another user; callers cannot distinguish the two.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("record already exists")

	// ErrConflict is returned when an event overlaps an existing one.
	ErrConflict = errors.New("conflicting event in time range")
)
