package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/barvision/barvision-core/internal/schedule"
)

// maxQueryParamLen limits query parameter length to prevent DoS via oversized URL params.
const maxQueryParamLen = 100

// handleListSchedules returns all schedules, sorted by name.
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.schedules.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list schedules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules, "count": len(schedules)})
}

// handleGetSchedule returns a single schedule by ID.
func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid schedule ID")
		return
	}

	sched, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		writeInternalError(w, "failed to get schedule")
		return
	}

	writeJSON(w, http.StatusOK, sched)
}

// handleCreateSchedule creates a new schedule.
func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var sched schedule.Schedule
	if err := json.NewDecoder(r.Body).Decode(&sched); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.engine.Create(r.Context(), &sched); err != nil {
		if errors.Is(err, schedule.ErrInvalidSchedule) || errors.Is(err, schedule.ErrInvalidName) ||
			errors.Is(err, schedule.ErrInvalidSlug) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, schedule.ErrScheduleExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to create schedule")
		return
	}

	writeJSON(w, http.StatusCreated, sched)
}

// handleUpdateSchedule partially updates a schedule.
func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid schedule ID")
		return
	}

	// Get existing schedule
	existing, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		writeInternalError(w, "failed to get schedule")
		return
	}

	// Decode partial update onto existing schedule
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.engine.Update(r.Context(), existing); err != nil {
		if errors.Is(err, schedule.ErrInvalidSchedule) || errors.Is(err, schedule.ErrInvalidName) ||
			errors.Is(err, schedule.ErrInvalidSlug) {
			writeBadRequest(w, err.Error())
			return
		}
		if errors.Is(err, schedule.ErrScheduleExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to update schedule")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteSchedule removes a schedule by ID. An in-flight execution
// finishes; only future fires stop.
func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid schedule ID")
		return
	}

	if err := s.engine.Delete(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		writeInternalError(w, "failed to delete schedule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// executeRequest is the request body for POST /schedules/{id}/execute.
type executeRequest struct {
	TriggerSource string `json:"trigger_source"`
}

// handleExecuteSchedule runs a schedule immediately ("Run Now").
//
// The run is synchronous: the response carries the finished execution
// record including per-step failures. A schedule already running
// returns 409 so panels can show "busy" rather than queuing a second
// run behind the first.
func (s *Server) handleExecuteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid schedule ID")
		return
	}

	var req executeRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}
	triggerSource := req.TriggerSource
	if triggerSource == "" {
		triggerSource = "api"
	}

	exec, err := s.engine.Execute(r.Context(), id, triggerSource)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		if errors.Is(err, schedule.ErrScheduleDisabled) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "schedule is disabled")
			return
		}
		if errors.Is(err, schedule.ErrBusy) {
			writeError(w, http.StatusConflict, ErrCodeConflict, "execution already in flight")
			return
		}
		writeInternalError(w, "failed to execute schedule")
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

// handleListExecutions returns execution history for a schedule, newest first.
//
// Query parameters:
//   - limit: maximum records to return (default 10, capped at 100)
func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid schedule ID")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	executions, err := s.engine.History(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		writeInternalError(w, "failed to list executions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"executions": executions, "count": len(executions)})
}
