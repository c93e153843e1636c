package handlers

import (
	"encoding/json"

	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

type Meta struct {
	TotalCount int    `json:"total_count"`
	Degraded   bool   `json:"degraded,omitempty"`
	Source     string `json:"source,omitempty"`
}

type ProductsSearchResult struct {
	Data []models.Product `json:"data"`
	Meta Meta             `json:"meta"`
}

type OfflineTransactionsResult struct {
	Data []models.OfflineTransaction `json:"data"`
	Meta Meta                        `json:"meta"`
}

type CountResult struct {
	Count int `json:"count"`
}

type ClearResult struct {
	Cleared int `json:"cleared"`
}

type OperationRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type OperationQueuedResult struct {
	ID int64 `json:"id"`
}

type RequeueResult struct {
	Requeued int `json:"requeued"`
}

type HealthResult struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error    string   `json:"error"`
	Code     string   `json:"code,omitempty"`
	Problems []string `json:"problems,omitempty"`
}
