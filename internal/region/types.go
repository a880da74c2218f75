package region

import (
	"fmt"

	"github.com/opentransit/regioncore/internal/store"
)

// Region represents a named transit service area.
// This matches the regions table in migrations/20240301_000000_initial_schema.up.sql.
type Region struct {
	// Identity
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// Connection endpoints
	OBABaseURL  string `json:"oba_base_url"`
	SiriBaseURL string `json:"siri_base_url"`

	// Locale and contact
	Language     string `json:"lang"`
	ContactEmail string `json:"contact_email"`

	// Capability flags, persisted as 0/1 integers
	SupportsDiscovery    bool `json:"supports_api_discovery"`
	SupportsOBARealtime  bool `json:"supports_api_realtime"`
	SupportsSiriRealtime bool `json:"supports_siri_realtime"`

	// Metadata
	TwitterURL   string `json:"twitter_url"`
	Experimental bool   `json:"experimental"`
	TutorialURL  string `json:"tutorial_url"`

	// Coverage boxes, loaded alongside the region. Order is not guaranteed.
	Bounds []Bounds `json:"bounds,omitempty"`
}

// Bounds is one rectangular coverage box belonging to a region.
// Lat/Lon mark the box centre; the spans are opaque extents.
type Bounds struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	LatSpan float64 `json:"lat_span"`
	LonSpan float64 `json:"lon_span"`
}

// DeepCopy creates a complete independent copy of the Region.
// The Bounds slice is cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (r *Region) DeepCopy() *Region {
	if r == nil {
		return nil
	}

	cpy := *r
	if r.Bounds != nil {
		cpy.Bounds = make([]Bounds, len(r.Bounds))
		copy(cpy.Bounds, r.Bounds)
	}
	return &cpy
}

// Validate checks that all required text fields are present.
// The storage layer enforces the same via NOT NULL constraints; validating
// here produces a clearer error before a transaction is opened.
func (r *Region) Validate() error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidRegion)
	case r.OBABaseURL == "":
		return fmt.Errorf("%w: oba_base_url is required", ErrInvalidRegion)
	case r.SiriBaseURL == "":
		return fmt.Errorf("%w: siri_base_url is required", ErrInvalidRegion)
	case r.Language == "":
		return fmt.Errorf("%w: lang is required", ErrInvalidRegion)
	case r.ContactEmail == "":
		return fmt.Errorf("%w: contact_email is required", ErrInvalidRegion)
	}
	return nil
}

// values builds the writable column map for the store, excluding id.
func (r *Region) values() map[string]any {
	return map[string]any{
		store.ColName:                 r.Name,
		store.ColOBABaseURL:           r.OBABaseURL,
		store.ColSiriBaseURL:          r.SiriBaseURL,
		store.ColLanguage:             r.Language,
		store.ColContactEmail:         r.ContactEmail,
		store.ColSupportsDiscovery:    boolToInt(r.SupportsDiscovery),
		store.ColSupportsOBARealtime:  boolToInt(r.SupportsOBARealtime),
		store.ColSupportsSiriRealtime: boolToInt(r.SupportsSiriRealtime),
		store.ColTwitterURL:           r.TwitterURL,
		store.ColExperimental:         boolToInt(r.Experimental),
		store.ColTutorialURL:          r.TutorialURL,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
