package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// System metrics
		r.Get("/metrics", s.handleMetrics)

		// System status (estate summary for dashboards)
		r.Get("/system/status", s.handleSystemStatus)
		r.Post("/system/reset", s.handleFactoryReset)

		// Schedule endpoints
		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", s.handleListSchedules)
			r.Post("/", s.handleCreateSchedule)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSchedule)
				r.Patch("/", s.handleUpdateSchedule)
				r.Delete("/", s.handleDeleteSchedule)
				r.Post("/execute", s.handleExecuteSchedule)
				r.Get("/executions", s.handleListExecutions)
			})
		})

		// Channel preset endpoints
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.handleListPresets)
			r.Post("/", s.handleCreatePreset)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPreset)
				r.Patch("/", s.handleUpdatePreset)
				r.Delete("/", s.handleDeletePreset)
				r.Post("/used", s.handleRecordPresetUse)
			})
		})

		// WebSocket for live execution events
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
