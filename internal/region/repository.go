package region

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/opentransit/regioncore/internal/store"
)

// Repository assembles Region entities from the regions and region_bounds
// resources. It deliberately works through the store's resource paths rather
// than raw SQL so every read and write goes through the same routing,
// projection, and change-notification machinery as any other caller.
type Repository struct {
	store *store.Store
}

// NewRepository creates a repository over the given store.
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// Get retrieves a region by id with its bounds attached.
// Returns (nil, nil) when the region does not exist; absence is not an
// error. The bounds slice carries no ordering guarantee.
func (r *Repository) Get(ctx context.Context, id int64) (*Region, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	rows, err := r.store.Query(ctx, itemPath(id), "", nil, "")
	if err != nil {
		return nil, fmt.Errorf("querying region %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("reading region %d: %w", id, err)
		}
		return nil, nil
	}

	reg, err := scanRegion(rows)
	if err != nil {
		return nil, fmt.Errorf("decoding region %d: %w", id, err)
	}
	rows.Close()

	bounds, err := r.boundsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	reg.Bounds = bounds
	return reg, nil
}

// List retrieves all regions with their bounds attached, ordered by id.
func (r *Repository) List(ctx context.Context) ([]Region, error) {
	rows, err := r.store.Query(ctx, store.PathRegions, "", nil, store.ColID)
	if err != nil {
		return nil, fmt.Errorf("querying regions: %w", err)
	}
	defer rows.Close()

	var regions []Region
	for rows.Next() {
		reg, err := scanRegion(rows)
		if err != nil {
			return nil, fmt.Errorf("decoding region: %w", err)
		}
		regions = append(regions, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading regions: %w", err)
	}
	rows.Close()

	for i := range regions {
		bounds, err := r.boundsFor(ctx, regions[i].ID)
		if err != nil {
			return nil, err
		}
		regions[i].Bounds = bounds
	}
	return regions, nil
}

// Upsert writes a region under the supplied id: update in place when a row
// with that id exists, otherwise insert forcing the id. Forced ids let an
// external catalog assign stable identifiers instead of relying on
// autoincrement. Returns the resulting resource address.
//
// The region's Bounds field is not written here; use ReplaceBounds.
func (r *Repository) Upsert(ctx context.Context, id int64, reg *Region) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if err := reg.Validate(); err != nil {
		return "", err
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}

	if existing != nil {
		if _, err := r.store.Update(ctx, itemPath(id), reg.values(), "", nil); err != nil {
			return "", fmt.Errorf("updating region %d: %w", id, err)
		}
		return itemPath(id), nil
	}

	values := reg.values()
	values[store.ColID] = id
	addr, _, err := r.store.Insert(ctx, store.PathRegions, values)
	if err != nil {
		return "", fmt.Errorf("inserting region %d: %w", id, err)
	}
	return addr, nil
}

// Insert creates a region with an auto-assigned id and returns it.
func (r *Repository) Insert(ctx context.Context, reg *Region) (int64, error) {
	if err := reg.Validate(); err != nil {
		return 0, err
	}
	_, id, err := r.store.Insert(ctx, store.PathRegions, reg.values())
	if err != nil {
		return 0, fmt.Errorf("inserting region: %w", err)
	}
	return id, nil
}

// Delete removes a region by id. The cascade trigger removes the region's
// bounds rows in the same transaction. Returns the number of regions
// deleted (0 or 1).
func (r *Repository) Delete(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	affected, err := r.store.Delete(ctx, itemPath(id), "", nil)
	if err != nil {
		return 0, fmt.Errorf("deleting region %d: %w", id, err)
	}
	return affected, nil
}

// ReplaceBounds swaps a region's full bounds set: existing rows for the
// region are deleted, then one row per supplied box is inserted. Used by
// catalog sync, which always receives the complete set.
func (r *Repository) ReplaceBounds(ctx context.Context, regionID int64, bounds []Bounds) error {
	if regionID <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, regionID)
	}

	filter := store.ColRegionID + " = ?"
	if _, err := r.store.Delete(ctx, store.PathBounds, filter, []any{regionID}); err != nil {
		return fmt.Errorf("clearing bounds for region %d: %w", regionID, err)
	}

	for _, b := range bounds {
		values := map[string]any{
			store.ColRegionID: regionID,
			store.ColLat:      b.Lat,
			store.ColLon:      b.Lon,
			store.ColLatSpan:  b.LatSpan,
			store.ColLonSpan:  b.LonSpan,
		}
		if _, _, err := r.store.Insert(ctx, store.PathBounds, values); err != nil {
			return fmt.Errorf("inserting bounds for region %d: %w", regionID, err)
		}
	}
	return nil
}

// boundsFor loads all coverage boxes for one region.
func (r *Repository) boundsFor(ctx context.Context, regionID int64) ([]Bounds, error) {
	filter := store.ColRegionID + " = ?"
	rows, err := r.store.Query(ctx, store.PathBounds, filter, []any{regionID}, "")
	if err != nil {
		return nil, fmt.Errorf("querying bounds for region %d: %w", regionID, err)
	}
	defer rows.Close()

	var bounds []Bounds
	for rows.Next() {
		var b Bounds
		if err := rows.Scan(&b.Lat, &b.Lon, &b.LatSpan, &b.LonSpan); err != nil {
			return nil, fmt.Errorf("decoding bounds for region %d: %w", regionID, err)
		}
		bounds = append(bounds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading bounds for region %d: %w", regionID, err)
	}
	return bounds, nil
}

// scanRegion decodes one row of the fixed regions projection. The scan is
// positional: the column order is the store's wire contract.
func scanRegion(rows *sql.Rows) (*Region, error) {
	var (
		reg                             Region
		discovery, realtime1, realtime2 int
		experimental                    int
	)
	err := rows.Scan(
		&reg.ID,
		&reg.Name,
		&reg.OBABaseURL,
		&reg.SiriBaseURL,
		&reg.Language,
		&reg.ContactEmail,
		&discovery,
		&realtime1,
		&realtime2,
		&reg.TwitterURL,
		&experimental,
		&reg.TutorialURL,
	)
	if err != nil {
		return nil, err
	}
	reg.SupportsDiscovery = discovery != 0
	reg.SupportsOBARealtime = realtime1 != 0
	reg.SupportsSiriRealtime = realtime2 != 0
	reg.Experimental = experimental != 0
	return &reg, nil
}

func itemPath(id int64) string {
	return store.PathRegions + "/" + strconv.FormatInt(id, 10)
}
