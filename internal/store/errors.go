package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when creating an admin with an email
	// address that is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)
