package store

import "errors"

// Domain-specific errors for store operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnknownResource is returned for a path that names no known resource.
	// This is a caller programming error, not a recoverable condition.
	ErrUnknownResource = errors.New("store: unknown resource path")

	// ErrInvalidID is returned when the id segment of a path is not an integer.
	ErrInvalidID = errors.New("store: invalid resource id")

	// ErrInvalidLimit is returned when the limit query parameter is not a
	// non-negative integer.
	ErrInvalidLimit = errors.New("store: invalid limit parameter")

	// ErrUnsupportedInsert is returned for an insert targeting an item path.
	// Row ids are assigned by the store, never supplied in the path.
	ErrUnsupportedInsert = errors.New("store: cannot insert to an item path")

	// ErrUnknownColumn is returned when a mutation supplies a column outside
	// the resource's allow-list.
	ErrUnknownColumn = errors.New("store: unknown column")

	// ErrNoValues is returned when a mutation supplies no column values.
	ErrNoValues = errors.New("store: no values supplied")

	// ErrConstraint is returned when the database rejects a mutation for a
	// constraint violation (for example a required column set to NULL).
	// The surrounding transaction has been rolled back.
	ErrConstraint = errors.New("store: constraint violation")

	// ErrStorage wraps any other failure from the storage engine. The
	// in-flight operation is lost but the store remains usable.
	ErrStorage = errors.New("store: storage failure")
)

// IsInvalidArgument reports whether err is a caller error (unknown resource,
// malformed id or limit, unsupported operation, unknown column).
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrUnknownResource) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrUnsupportedInsert) ||
		errors.Is(err, ErrUnknownColumn) ||
		errors.Is(err, ErrNoValues)
}
