package handlers

import (
	"net/http"

	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"go.uber.org/zap"
)

// GetOfflineTransactionsHandler godoc
// @Summary List sales waiting to be synced
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Param cashier_id query string false "Only this cashier's sales"
// @Success 200 {object} OfflineTransactionsResult
// @Router /offline/transactions [get]
func (s *Server) GetOfflineTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	txs, err := s.pos.ListOfflineTransactions(r.Context(), r.URL.Query().Get("cashier_id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, OfflineTransactionsResult{Data: txs, Meta: Meta{TotalCount: len(txs)}})
}

// GetOfflineTransactionCountHandler godoc
// @Summary Number of sales waiting to be synced
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CountResult
// @Router /offline/transactions/count [get]
func (s *Server) GetOfflineTransactionCountHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.pos.GetOfflineTransactionCount(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, CountResult{Count: n})
}

// ClearOfflineTransactionsHandler godoc
// @Summary Drop every queued sale
// @Description Unsynced sales are lost. Admin only.
// @Tags offline
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ClearResult
// @Failure 403 {object} ErrorResponse
// @Router /offline/transactions [delete]
func (s *Server) ClearOfflineTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.pos.GetOfflineTransactionCount(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.pos.ClearOfflineTransactions(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.log.Warn("offline queue cleared through the API", zap.Int("dropped", n))
	s.respond(w, http.StatusOK, ClearResult{Cleared: n})
}

// QueueOperationHandler godoc
// @Summary Queue a generic operation for the next sync pass
// @Tags outbox
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param operation body OperationRequest true "Operation"
// @Success 202 {object} OperationQueuedResult
// @Failure 400 {object} ErrorResponse
// @Router /outbox [post]
func (s *Server) QueueOperationHandler(w http.ResponseWriter, r *http.Request) {
	var op OperationRequest
	if err := readJSON(w, r, &op); err != nil {
		s.respondError(w, r, &pos.ValidationError{Problems: []string{err.Error()}})
		return
	}
	if err := validateOperation(op); err != nil {
		s.respondError(w, r, err)
		return
	}
	id, err := s.pos.QueueOperation(r.Context(), op.Type, op.Payload)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusAccepted, OperationQueuedResult{ID: id})
}

// RequeueOperationsHandler godoc
// @Summary Retry operations that exhausted their attempts
// @Tags outbox
// @Produce json
// @Security BearerAuth
// @Success 200 {object} RequeueResult
// @Router /outbox/requeue [post]
func (s *Server) RequeueOperationsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.pos.RequeueFailedOperations(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, RequeueResult{Requeued: n})
}
