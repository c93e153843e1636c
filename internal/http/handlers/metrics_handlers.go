package handlers

import "net/http"

// GetDashboardMetricsHandler godoc
// @Summary Terminal status for the admin view
// @Tags metrics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} pos.Status
// @Failure 500 {object} ErrorResponse
// @Router /metrics/dashboard [get]
func (s *Server) GetDashboardMetricsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.pos.Status(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, st)
}

// HealthHandler godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResult
// @Router /health [get]
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, HealthResult{Status: "ok"})
}
