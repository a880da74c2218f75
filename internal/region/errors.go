package region

import "errors"

// Domain errors for the region package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, region.ErrRegionNotFound) {
//	    // handle not found case
//	}
var (
	// ErrRegionNotFound is returned by the Registry when a region id does
	// not exist. The Repository signals absence with a nil region instead.
	ErrRegionNotFound = errors.New("region: not found")

	// ErrInvalidRegion is returned when region validation fails before a
	// write is attempted.
	ErrInvalidRegion = errors.New("region: invalid")

	// ErrInvalidID is returned when a region id is not positive.
	ErrInvalidID = errors.New("region: invalid id")
)
