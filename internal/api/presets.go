package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/barvision/barvision-core/internal/preset"
)

// handleListPresets returns channel presets in rank order: most used
// first, recency then operator position breaking ties. This is the
// order bar staff see on the panel.
//
// Query parameters:
//   - device_type: filter to one tuner family (cable, satellite)
func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if deviceType := r.URL.Query().Get("device_type"); deviceType != "" {
		dt := preset.DeviceType(deviceType)
		valid := false
		for _, d := range preset.ValidDeviceTypes() {
			if d == dt {
				valid = true
				break
			}
		}
		if !valid {
			writeBadRequest(w, "invalid device_type")
			return
		}
		presets, err := s.ranker.RankedByDeviceType(ctx, dt)
		if err != nil {
			writeInternalError(w, "failed to list presets")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"presets": presets, "count": len(presets)})
		return
	}

	presets, err := s.ranker.Ranked(ctx)
	if err != nil {
		writeInternalError(w, "failed to list presets")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": presets, "count": len(presets)})
}

// handleGetPreset returns a single preset by ID.
func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid preset ID")
		return
	}

	p, err := s.presets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, preset.ErrPresetNotFound) {
			writeNotFound(w, "preset not found")
			return
		}
		writeInternalError(w, "failed to get preset")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleCreatePreset creates a new channel preset. Presets are the
// vetting boundary for automatic tuning: only channels created here
// can ever be tuned by game discovery.
func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	var p preset.ChannelPreset
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	if err := s.presets.Create(r.Context(), &p); err != nil {
		if errors.Is(err, preset.ErrInvalidPreset) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, preset.ErrPresetExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to create preset")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// handleUpdatePreset partially updates a preset's definition. Usage
// counters are owned by the tune path and are never written here, so a
// stale panel payload cannot roll the ranking back.
func (s *Server) handleUpdatePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid preset ID")
		return
	}

	existing, err := s.presets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, preset.ErrPresetNotFound) {
			writeNotFound(w, "preset not found")
			return
		}
		writeInternalError(w, "failed to get preset")
		return
	}

	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.presets.Update(r.Context(), existing); err != nil {
		if errors.Is(err, preset.ErrInvalidPreset) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, preset.ErrPresetExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to update preset")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeletePreset removes a preset by ID.
func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid preset ID")
		return
	}

	if err := s.presets.Delete(r.Context(), id); err != nil {
		if errors.Is(err, preset.ErrPresetNotFound) {
			writeNotFound(w, "preset not found")
			return
		}
		writeInternalError(w, "failed to delete preset")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRecordPresetUse bumps a preset's usage counters. Called by
// panels when staff tune a channel by hand, so manual tunes rank
// alongside scheduled ones.
func (s *Server) handleRecordPresetUse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid preset ID")
		return
	}

	if err := s.presets.RecordUse(r.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, preset.ErrPresetNotFound) {
			writeNotFound(w, "preset not found")
			return
		}
		writeInternalError(w, "failed to record preset use")
		return
	}

	p, err := s.presets.GetByID(r.Context(), id)
	if err != nil {
		writeInternalError(w, "failed to get preset")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
