package api

import (
	"encoding/json"
	"net/http"
)

// handleSystemStatus returns a summary of the running system for
// dashboards: schedule counts, the device estate, and connection state
// of the optional infrastructure.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":    "ok",
		"version":   s.version,
		"schedules": s.schedules.Count(),
	}

	if s.hub != nil {
		status["websocket_clients"] = s.hub.ClientCount()
	}
	if s.mqtt != nil {
		status["mqtt_connected"] = s.mqtt.IsConnected()
	}
	if s.devices != nil {
		status["outputs"] = s.devices.Outputs()
		status["tuner_inputs"] = s.devices.TunerInputs()
		matrixOK := s.devices.HealthCheck(r.Context()) == nil
		status["matrix_reachable"] = matrixOK
	}

	writeJSON(w, http.StatusOK, status)
}

// FactoryResetRequest defines the options for a factory reset.
type FactoryResetRequest struct {
	ClearSchedules  bool   `json:"clear_schedules"`
	ClearExecutions bool   `json:"clear_executions"`
	ClearPresets    bool   `json:"clear_presets"`
	Confirm         string `json:"confirm"`
}

// FactoryResetResponse reports what was deleted.
type FactoryResetResponse struct {
	Status  string         `json:"status"`
	Deleted map[string]int `json:"deleted"`
}

// handleFactoryReset clears selected data from the database in a single
// transaction, then refreshes the schedule cache.
//
// This is a destructive operation — the request must include an exact
// confirmation string as a safety guard.
func (s *Server) handleFactoryReset(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeInternalError(w, "database not available")
		return
	}

	var req FactoryResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	// Safety guard: require exact confirmation string.
	if req.Confirm != "FACTORY RESET" {
		writeBadRequest(w, `confirm field must be exactly "FACTORY RESET"`)
		return
	}

	if !req.ClearSchedules && !req.ClearExecutions && !req.ClearPresets {
		writeBadRequest(w, "at least one clear_* option must be true")
		return
	}

	ctx := r.Context()
	deleted := make(map[string]int)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("factory reset: failed to begin transaction", "error", err)
		writeInternalError(w, "failed to begin transaction")
		return
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	deleteFrom := func(table string) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected()
		deleted[table] = int(n)
		return nil
	}

	// Executions go first: they reference schedules, and clearing
	// schedules implies clearing their history too.
	if req.ClearExecutions || req.ClearSchedules {
		if err := deleteFrom("schedule_executions"); err != nil {
			s.logger.Error("factory reset: failed to clear schedule_executions", "error", err)
			writeInternalError(w, "failed to clear executions")
			return
		}
	}
	if req.ClearSchedules {
		if err := deleteFrom("schedules"); err != nil {
			s.logger.Error("factory reset: failed to clear schedules", "error", err)
			writeInternalError(w, "failed to clear schedules")
			return
		}
	}
	if req.ClearPresets {
		if err := deleteFrom("channel_presets"); err != nil {
			s.logger.Error("factory reset: failed to clear channel_presets", "error", err)
			writeInternalError(w, "failed to clear presets")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("factory reset: failed to commit transaction", "error", err)
		writeInternalError(w, "failed to commit factory reset")
		return
	}

	s.logger.Info("factory reset committed", "deleted", deleted)

	// Refresh the in-memory schedule cache after the DB wipe.
	if req.ClearSchedules {
		if err := s.schedules.RefreshCache(ctx); err != nil {
			s.logger.Warn("factory reset: failed to refresh schedule cache", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, FactoryResetResponse{
		Status:  "ok",
		Deleted: deleted,
	})
}
