package catalog

import "errors"

// Domain errors for the catalog package.
var (
	// ErrUnavailable is returned when the remote catalog cannot be reached
	// or answers with a non-success status.
	ErrUnavailable = errors.New("catalog: unavailable")

	// ErrBadPayload is returned when the catalog response cannot be decoded.
	ErrBadPayload = errors.New("catalog: bad payload")
)
