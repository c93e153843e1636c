package handlers

import (
	"net/http"

	"github.com/rogerio-castellano/pos-terminal/internal/auth"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"go.uber.org/zap"
)

// CreateTransactionHandler godoc
// @Summary Record a sale
// @Description Sends the sale to the remote service. When it is unreachable the sale is queued offline and 202 is returned with the offline id.
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param transaction body models.TransactionRequest true "Sale"
// @Success 201 {object} pos.TransactionResult
// @Success 202 {object} pos.TransactionResult
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Rejected by the remote service"
// @Failure 507 {object} ErrorResponse "Offline queue write failed"
// @Router /transactions [post]
func (s *Server) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if err := readJSON(w, r, &req); err != nil {
		s.respondError(w, r, &pos.ValidationError{Problems: []string{err.Error()}})
		return
	}

	cashier, _ := auth.CashierFrom(r.Context())
	if req.CashierID == "" {
		req.CashierID = cashier.ID
	}

	res, err := s.pos.CreateTransaction(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Pending {
		status = http.StatusAccepted
		s.log.Info("sale accepted offline", zap.String("offline_id", res.OfflineID), zap.String("cashier_id", req.CashierID))
	}
	s.respond(w, status, res)
}
