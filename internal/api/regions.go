package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opentransit/regioncore/internal/region"
)

// parseRegionID extracts and parses the {id} route parameter.
func parseRegionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// handleListRegions returns all regions, ordered by id.
//
// Query parameters:
//   - active: when "true", experimental regions are excluded
//   - limit: maximum number of regions to return
func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		regions []region.Region
		err     error
	)
	if r.URL.Query().Get("active") == "true" {
		regions, err = s.registry.ActiveRegions(ctx)
	} else {
		regions, err = s.registry.ListRegions(ctx)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, parseErr := strconv.Atoi(limitStr)
		if parseErr != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		if limit < len(regions) {
			regions = regions[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"regions": regions, "count": len(regions)})
}

// handleGetRegion returns a single region by id, bounds included.
func (s *Server) handleGetRegion(w http.ResponseWriter, r *http.Request) {
	id, err := parseRegionID(r)
	if err != nil {
		writeBadRequest(w, "region id must be an integer")
		return
	}

	reg, err := s.registry.GetRegion(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reg)
}

// handleCreateRegion creates a region with a store-assigned id.
func (s *Server) handleCreateRegion(w http.ResponseWriter, r *http.Request) {
	var reg region.Region
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if reg.ID != 0 {
		writeBadRequest(w, "id cannot be supplied on create; use PUT /regions/{id}")
		return
	}

	ctx := r.Context()
	id, err := s.registry.InsertRegion(ctx, &reg)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if len(reg.Bounds) > 0 {
		if err := s.registry.ReplaceBounds(ctx, id, reg.Bounds); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	created, err := s.registry.GetRegion(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpsertRegion creates or replaces the region at the addressed id.
func (s *Server) handleUpsertRegion(w http.ResponseWriter, r *http.Request) {
	id, err := parseRegionID(r)
	if err != nil {
		writeBadRequest(w, "region id must be an integer")
		return
	}

	var reg region.Region
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	ctx := r.Context()
	addr, err := s.registry.UpsertRegion(ctx, id, &reg)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if reg.Bounds != nil {
		if err := s.registry.ReplaceBounds(ctx, id, reg.Bounds); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	stored, err := s.registry.GetRegion(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"address": addr, "region": stored})
}

// handleUpdateRegion partially updates a region. Fields absent from the
// body keep their stored values; a bounds field replaces the coverage set.
func (s *Server) handleUpdateRegion(w http.ResponseWriter, r *http.Request) {
	id, err := parseRegionID(r)
	if err != nil {
		writeBadRequest(w, "region id must be an integer")
		return
	}

	ctx := r.Context()
	existing, err := s.registry.GetRegion(ctx, id)
	if err != nil {
		if errors.Is(err, region.ErrRegionNotFound) {
			writeNotFound(w, "region not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	// Decode partial update onto the existing region. A raw probe decides
	// whether the body carried a bounds replacement at all.
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := json.Unmarshal(raw, existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if _, err := s.registry.UpsertRegion(ctx, id, existing); err != nil {
		writeDomainError(w, err)
		return
	}

	// The repository re-reads persisted bounds on upsert, so an in-body
	// bounds replacement has to be written explicitly.
	if _, hasBounds := probe["bounds"]; hasBounds {
		if err := s.registry.ReplaceBounds(ctx, id, existing.Bounds); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	updated, err := s.registry.GetRegion(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteRegion removes a region. Its bounds are removed with it.
func (s *Server) handleDeleteRegion(w http.ResponseWriter, r *http.Request) {
	id, err := parseRegionID(r)
	if err != nil {
		writeBadRequest(w, "region id must be an integer")
		return
	}

	if err := s.registry.DeleteRegion(r.Context(), id); err != nil {
		if errors.Is(err, region.ErrRegionNotFound) {
			writeNotFound(w, "region not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleReplaceRegionBounds swaps the full coverage set for a region.
// The body is a JSON array of bounding boxes.
func (s *Server) handleReplaceRegionBounds(w http.ResponseWriter, r *http.Request) {
	id, err := parseRegionID(r)
	if err != nil {
		writeBadRequest(w, "region id must be an integer")
		return
	}

	var bounds []region.Bounds
	if err := json.NewDecoder(r.Body).Decode(&bounds); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.ReplaceBounds(r.Context(), id, bounds); err != nil {
		if errors.Is(err, region.ErrRegionNotFound) {
			writeNotFound(w, "region not found")
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"region_id": id, "count": len(bounds)})
}
