package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
