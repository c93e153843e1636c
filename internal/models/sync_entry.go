package models

import (
	"encoding/json"
	"time"
)

const (
	SyncEntryPending = "pending"
	SyncEntryFailed  = "failed"
)

// SyncQueueEntry is a pending outbound operation other than a sale.
type SyncQueueEntry struct {
	ID        int64           `json:"id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"last_error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
