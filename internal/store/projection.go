package store

import (
	"context"
	"fmt"

	"github.com/opentransit/regioncore/internal/infrastructure/database"
)

// Column names for the regions table. The ordered projection is the wire
// contract: callers decode rows by position, so the order must never change.
const (
	ColID                   = "id"
	ColName                 = "name"
	ColOBABaseURL           = "oba_base_url"
	ColSiriBaseURL          = "siri_base_url"
	ColLanguage             = "lang"
	ColContactEmail         = "contact_email"
	ColSupportsDiscovery    = "supports_api_discovery"
	ColSupportsOBARealtime  = "supports_api_realtime"
	ColSupportsSiriRealtime = "supports_siri_realtime"
	ColTwitterURL           = "twitter_url"
	ColExperimental         = "experimental"
	ColTutorialURL          = "tutorial_url"
)

// Column names for the region_bounds table.
const (
	ColRegionID = "region_id"
	ColLat      = "lat"
	ColLon      = "lon"
	ColLatSpan  = "lat_span"
	ColLonSpan  = "lon_span"
)

// regionsProjection is the fixed read projection for the regions resource,
// id first.
var regionsProjection = []string{
	ColID,
	ColName,
	ColOBABaseURL,
	ColSiriBaseURL,
	ColLanguage,
	ColContactEmail,
	ColSupportsDiscovery,
	ColSupportsOBARealtime,
	ColSupportsSiriRealtime,
	ColTwitterURL,
	ColExperimental,
	ColTutorialURL,
}

// regionsColumns is the full writable column list for regions.
// Identical to the projection; id is writable to let an external catalog
// force stable ids on insert.
var regionsColumns = regionsProjection

// boundsProjection is the fixed read projection for the region_bounds
// resource. It deliberately excludes id and region_id: bounds are read back
// as plain boxes attached to a region the caller already knows.
var boundsProjection = []string{
	ColLat,
	ColLon,
	ColLatSpan,
	ColLonSpan,
}

// boundsColumns is the full writable column list for region_bounds.
var boundsColumns = []string{
	ColID,
	ColRegionID,
	ColLat,
	ColLon,
	ColLatSpan,
	ColLonSpan,
}

// CheckProjections verifies at startup that every projected and writable
// column exists in the live schema. A mismatch means the migrations and the
// projection lists have drifted apart, which would corrupt positional
// decoding; it is fatal.
func CheckProjections(ctx context.Context, db *database.DB) error {
	for table, cols := range map[string][]string{
		PathRegions: regionsColumns,
		PathBounds:  boundsColumns,
	} {
		have, err := tableColumns(ctx, db, table)
		if err != nil {
			return err
		}
		for _, col := range cols {
			if _, ok := have[col]; !ok {
				return fmt.Errorf("schema check: table %s is missing column %s", table, col)
			}
		}
	}
	return nil
}

// tableColumns returns the column names of a table via PRAGMA table_info.
func tableColumns(ctx context.Context, db *database.DB, table string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("reading schema for %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning schema row for %s: %w", table, err)
		}
		cols[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schema rows for %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("schema check: table %s does not exist", table)
	}
	return cols, nil
}
