package storage

import "errors"

// Errors shared by the snapshot history and market point stores.
var (
	// ErrNotFound means no snapshot record has the requested id.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means a snapshot id or a (mint, timestamp_ms) market point already exists.
	// History is append-only; recorded rows are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key: history rows are never overwritten")

	// ErrInvalidInput means a record is missing its id or mint, or a list limit is not positive.
	ErrInvalidInput = errors.New("invalid input")
)
