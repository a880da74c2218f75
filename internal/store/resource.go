package store

import (
	"fmt"
	"strconv"
	"strings"
)

// Resource path strings. These are part of the durable contract with
// external collaborators and must never change.
const (
	PathRegions = "regions"
	PathBounds  = "region_bounds"
)

// Kind identifies which logical resource a path addresses.
type Kind int

// The four addressable resources: each table in collection and item form.
const (
	RegionsCollection Kind = iota
	RegionsItem
	BoundsCollection
	BoundsItem
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case RegionsCollection:
		return "regions"
	case RegionsItem:
		return "regions item"
	case BoundsCollection:
		return "region_bounds"
	case BoundsItem:
		return "region_bounds item"
	default:
		return "unknown"
	}
}

// Resource is the parsed form of a logical resource path: which table it
// addresses, whether it names a single row, and an optional row cap.
type Resource struct {
	Kind Kind

	// ID is the row id for item kinds; undefined otherwise.
	ID int64

	// Limit caps query results when positive. Parsed from the "limit"
	// query parameter on the path.
	Limit int
}

// ParseResource resolves a logical resource path to a Resource descriptor.
//
// Recognised forms (case-sensitive, no trailing slash):
//
//	regions              regions/<id>
//	region_bounds        region_bounds/<id>
//
// An optional "?limit=N" suffix caps query results. Anything else fails
// with ErrUnknownResource, ErrInvalidID, or ErrInvalidLimit.
func ParseResource(path string) (Resource, error) {
	var res Resource

	path, query, hasQuery := strings.Cut(path, "?")
	if hasQuery {
		limit, err := parseLimit(query)
		if err != nil {
			return res, err
		}
		res.Limit = limit
	}

	name, idSegment, hasID := strings.Cut(path, "/")

	switch name {
	case PathRegions:
		res.Kind = RegionsCollection
	case PathBounds:
		res.Kind = BoundsCollection
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownResource, path)
	}

	if !hasID {
		return res, nil
	}

	id, err := strconv.ParseInt(idSegment, 10, 64)
	if err != nil {
		return res, fmt.Errorf("%w: %q", ErrInvalidID, idSegment)
	}
	res.ID = id
	res.Kind++ // collection kinds are declared immediately before their item kinds

	return res, nil
}

// parseLimit extracts the "limit" parameter from a raw query string.
// Returns 0 when the parameter is absent.
func parseLimit(query string) (int, error) {
	for _, pair := range strings.Split(query, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if key != "limit" {
			continue
		}
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, value)
		}
		return limit, nil
	}
	return 0, nil
}

// IsItem reports whether the resource addresses a single row.
func (r Resource) IsItem() bool {
	return r.Kind == RegionsItem || r.Kind == BoundsItem
}

// Table returns the physical table the resource maps to.
func (r Resource) Table() string {
	switch r.Kind {
	case RegionsCollection, RegionsItem:
		return PathRegions
	default:
		return PathBounds
	}
}

// Collection returns the collection path string for the resource.
// For the two known resources this equals the table name, but callers must
// treat them as distinct concepts: the path is the external contract, the
// table is the storage detail.
func (r Resource) Collection() string {
	return r.Table()
}

// Path returns the full resource path, including the id segment for items.
func (r Resource) Path() string {
	if r.IsItem() {
		return r.Collection() + "/" + strconv.FormatInt(r.ID, 10)
	}
	return r.Collection()
}

// Projection returns the fixed, ordered column list queries return for this
// resource. The store enforces it regardless of what a caller asks for,
// guaranteeing stable positional decoding.
func (r Resource) Projection() []string {
	switch r.Kind {
	case RegionsCollection, RegionsItem:
		return regionsProjection
	default:
		return boundsProjection
	}
}

// columns returns every writable column for the resource's table, in schema
// order. Mutations may only touch columns in this list.
func (r Resource) columns() []string {
	switch r.Kind {
	case RegionsCollection, RegionsItem:
		return regionsColumns
	default:
		return boundsColumns
	}
}
