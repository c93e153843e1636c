package handlers

import "net/http"

// SyncHandler godoc
// @Summary Run a sync pass now
// @Tags sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} syncer.Result
// @Failure 500 {object} ErrorResponse
// @Router /sync [post]
func (s *Server) SyncHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.pos.SyncNow(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, res)
}
