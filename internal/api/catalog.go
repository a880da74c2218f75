package api

import (
	"errors"
	"net/http"

	"github.com/opentransit/regioncore/internal/catalog"
)

// handleCatalogSync runs an immediate catalog sync and reports the outcome.
// Returns 503 when no catalog URL is configured and 502 when the upstream
// directory cannot be fetched or parsed.
func (s *Server) handleCatalogSync(w http.ResponseWriter, r *http.Request) {
	if s.syncer == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "catalog sync is not configured")
		return
	}

	result, err := s.syncer.Sync(r.Context())
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) || errors.Is(err, catalog.ErrBadPayload) {
			writeError(w, http.StatusBadGateway, ErrCodeUnavailable, err.Error())
			return
		}
		writeInternalError(w, "catalog sync failed")
		return
	}

	// The catalog writes through the repository; cached entries predating
	// the sync are refreshed on next read.
	s.registry.InvalidateAll()

	writeJSON(w, http.StatusOK, result)
}
