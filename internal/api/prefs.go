package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opentransit/regioncore/internal/prefs"
)

// handleListPreferences returns every stored preference as a key/value map.
func (s *Server) handleListPreferences(w http.ResponseWriter, r *http.Request) {
	all, err := s.prefs.All(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list preferences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"preferences": all, "count": len(all)})
}

// handleGetPreference returns one preference value.
func (s *Server) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, ok, err := s.prefs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, prefs.ErrInvalidKey) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to read preference")
		return
	}
	if !ok {
		writeNotFound(w, "preference not set")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// handleSetPreferences writes a batch of preferences atomically.
// The body is a flat JSON object of key/value strings.
func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.prefs.SetAll(r.Context(), values); err != nil {
		if errors.Is(err, prefs.ErrInvalidKey) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to write preferences")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"written": len(values)})
}

// handleSetPreference writes one preference value.
// The body is {"value": "..."}.
func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.prefs.Set(r.Context(), key, body.Value); err != nil {
		if errors.Is(err, prefs.ErrInvalidKey) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to write preference")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": body.Value})
}

// handleDeletePreference removes a preference. Deleting an unset key succeeds.
func (s *Server) handleDeletePreference(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := s.prefs.Delete(r.Context(), key); err != nil {
		if errors.Is(err, prefs.ErrInvalidKey) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to delete preference")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
