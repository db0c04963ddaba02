package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrRecordNotFound is returned when an update targets a record that
	// does not exist for the user and collection.
	ErrRecordNotFound = errors.New("record was not found")

	// ErrRecordAlreadyExists is returned when an insert collides with an
	// existing record id.
	ErrRecordAlreadyExists = errors.New("record already exists")

	// ErrOperationNotFound is returned when a queued operation to replace is
	// no longer stored.
	ErrOperationNotFound = errors.New("pending operation was not found")

	// ErrCorruptedEntry is returned when a persisted queue entry or mirror
	// value cannot be decoded.
	ErrCorruptedEntry = errors.New("corrupted persisted entry")
)

// Low-level database operation errors.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails.
	ErrBuildingSQLQuery = errors.New("error building sql query")
)
