package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opentransit/regioncore/internal/region"
	"github.com/opentransit/regioncore/internal/store"
)

// boundsPayload is the request body for bounds mutations. Pointer fields
// distinguish absent keys from zero values on partial updates.
type boundsPayload struct {
	RegionID *int64   `json:"region_id,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	LatSpan  *float64 `json:"lat_span,omitempty"`
	LonSpan  *float64 `json:"lon_span,omitempty"`
}

// values converts the payload to a store column map, keeping only
// the fields present in the request body.
func (p boundsPayload) values() map[string]any {
	values := make(map[string]any)
	if p.RegionID != nil {
		values[store.ColRegionID] = *p.RegionID
	}
	if p.Lat != nil {
		values[store.ColLat] = *p.Lat
	}
	if p.Lon != nil {
		values[store.ColLon] = *p.Lon
	}
	if p.LatSpan != nil {
		values[store.ColLatSpan] = *p.LatSpan
	}
	if p.LonSpan != nil {
		values[store.ColLonSpan] = *p.LonSpan
	}
	return values
}

// handleListBounds returns bounding boxes across all regions.
//
// Query parameters:
//   - region_id: restrict to one region's coverage set
//   - limit: maximum number of boxes to return
func (s *Server) handleListBounds(w http.ResponseWriter, r *http.Request) {
	path := store.PathBounds
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		path += "?limit=" + limitStr
	}

	var (
		filter string
		args   []any
	)
	if regionStr := r.URL.Query().Get("region_id"); regionStr != "" {
		regionID, err := strconv.ParseInt(regionStr, 10, 64)
		if err != nil {
			writeBadRequest(w, "region_id must be an integer")
			return
		}
		filter = store.ColRegionID + " = ?"
		args = []any{regionID}
	}

	rows, err := s.store.Query(r.Context(), path, filter, args, store.ColRegionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer rows.Close() //nolint:errcheck // Read-only rows; close error carries no new information

	bounds := []region.Bounds{}
	for rows.Next() {
		var b region.Bounds
		if err := rows.Scan(&b.Lat, &b.Lon, &b.LatSpan, &b.LonSpan); err != nil {
			writeInternalError(w, "failed to read bounds")
			return
		}
		bounds = append(bounds, b)
	}
	if err := rows.Err(); err != nil {
		writeInternalError(w, "failed to read bounds")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bounds": bounds, "count": len(bounds)})
}

// handleGetBounds returns a single bounding box by row id.
func (s *Server) handleGetBounds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rows, err := s.store.Query(r.Context(), store.PathBounds+"/"+id, "", nil, "")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer rows.Close() //nolint:errcheck // Read-only rows; close error carries no new information

	if !rows.Next() {
		writeNotFound(w, "bounds not found")
		return
	}
	var b region.Bounds
	if err := rows.Scan(&b.Lat, &b.Lon, &b.LatSpan, &b.LonSpan); err != nil {
		writeInternalError(w, "failed to read bounds")
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// handleCreateBounds adds a bounding box to a region's coverage set.
func (s *Server) handleCreateBounds(w http.ResponseWriter, r *http.Request) {
	var payload boundsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if payload.RegionID == nil {
		writeBadRequest(w, "region_id is required")
		return
	}

	addr, id, err := s.store.Insert(r.Context(), store.PathBounds, payload.values())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The parent region's cached bounds are now stale
	s.registry.Invalidate(*payload.RegionID)

	writeJSON(w, http.StatusCreated, map[string]any{"address": addr, "id": id})
}

// handleUpdateBounds partially updates a bounding box by row id.
func (s *Server) handleUpdateBounds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var payload boundsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	affected, err := s.store.Update(r.Context(), store.PathBounds+"/"+id, payload.values(), "", nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if affected == 0 {
		writeNotFound(w, "bounds not found")
		return
	}

	// The owning region is unknown from the row id alone
	s.registry.InvalidateAll()

	writeJSON(w, http.StatusOK, map[string]any{"updated": affected})
}

// handleDeleteBounds removes a bounding box by row id.
func (s *Server) handleDeleteBounds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	affected, err := s.store.Delete(r.Context(), store.PathBounds+"/"+id, "", nil)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if affected == 0 {
		writeNotFound(w, "bounds not found")
		return
	}

	s.registry.InvalidateAll()

	w.WriteHeader(http.StatusNoContent)
}
