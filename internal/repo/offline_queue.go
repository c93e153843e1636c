package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"go.uber.org/zap"
)

var (
	ErrAlreadyQueued              = errors.New("offline transaction already queued")
	ErrOfflineTransactionNotFound = errors.New("offline transaction not found")
	ErrOfflineIDRequired          = errors.New("offline id is required")
)

// NewOfflineID returns "OFF-<unix millis>-<8 hex chars>". The random suffix
// keeps ids unique for calls within the same millisecond or under clock skew.
func NewOfflineID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("OFF-%d-%s", now.UnixMilli(), suffix)
}

// OfflineQueue durably holds sales that the remote service has not
// confirmed yet. It is the only record of such a sale until a sync pass
// removes it after remote acceptance.
type OfflineQueue struct {
	store localstore.Store
	now   func() time.Time
	log   *zap.Logger
}

func NewOfflineQueue(store localstore.Store, log *zap.Logger) *OfflineQueue {
	if log == nil {
		log = zap.NewNop()
	}
	return &OfflineQueue{store: store, now: time.Now, log: log}
}

// Enqueue stores req under a new offline id and returns the id once the
// write is durable.
func (q *OfflineQueue) Enqueue(ctx context.Context, req models.TransactionRequest) (string, error) {
	id := NewOfflineID(q.now())
	if err := q.EnqueueAs(ctx, id, req); err != nil {
		return "", err
	}
	return id, nil
}

// EnqueueAs stores req under an id the caller generated beforehand, for
// example the idempotency key already sent with a failed online attempt.
// The request is stored unchanged; line totals must already be computed.
func (q *OfflineQueue) EnqueueAs(ctx context.Context, offlineID string, req models.TransactionRequest) error {
	if offlineID == "" {
		return ErrOfflineIDRequired
	}
	_, found, err := q.store.Get(ctx, localstore.OfflineTransactions, offlineID)
	if err != nil {
		return fmt.Errorf("failed to check offline queue: %w", err)
	}
	if found {
		return fmt.Errorf("%w: %s", ErrAlreadyQueued, offlineID)
	}

	rec := models.OfflineTransaction{
		OfflineID:          offlineID,
		TransactionRequest: req,
		CreatedAt:          q.now().UTC(),
		Status:             models.TransactionStatusOffline,
	}
	if _, err := q.store.Put(ctx, localstore.OfflineTransactions, rec); err != nil {
		return fmt.Errorf("failed to queue offline transaction %s: %w", offlineID, err)
	}
	q.log.Info("transaction queued offline",
		zap.String("offline_id", offlineID),
		zap.String("outlet_id", req.OutletID),
		zap.Int("items", len(req.Items)))
	return nil
}

// UnreadableRecord is a queued record that no longer decodes. It stays in
// the queue; OfflineID is empty when not even the key could be read.
type UnreadableRecord struct {
	OfflineID string
	Err       error
}

// Scan returns the queued transactions in creation order and, separately,
// the records that fail to decode. Only a failure to read the store is an
// error, so one damaged record never hides the others.
func (q *OfflineQueue) Scan(ctx context.Context, matches ...localstore.Match) ([]models.OfflineTransaction, []UnreadableRecord, error) {
	raws, err := q.store.GetAll(ctx, localstore.OfflineTransactions, matches...)
	if err != nil {
		return nil, nil, err
	}
	txs := make([]models.OfflineTransaction, 0, len(raws))
	var bad []UnreadableRecord
	for _, raw := range raws {
		var tx models.OfflineTransaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			bad = append(bad, UnreadableRecord{OfflineID: offlineIDOf(raw), Err: err})
			continue
		}
		txs = append(txs, tx)
	}
	sortByCreation(txs)
	return txs, bad, nil
}

func offlineIDOf(raw json.RawMessage) string {
	var key struct {
		OfflineID string `json:"offline_id"`
	}
	if json.Unmarshal(raw, &key) != nil {
		return ""
	}
	return key.OfflineID
}

// ListAll returns every readable queued transaction in creation order,
// including those that failed earlier sync attempts. Unreadable records are
// logged and left in place.
func (q *OfflineQueue) ListAll(ctx context.Context) ([]models.OfflineTransaction, error) {
	return q.list(ctx)
}

// ListByCashier returns the queued transactions rung up by cashierID.
func (q *OfflineQueue) ListByCashier(ctx context.Context, cashierID string) ([]models.OfflineTransaction, error) {
	return q.list(ctx, localstore.Eq("cashier_id", cashierID))
}

func (q *OfflineQueue) list(ctx context.Context, matches ...localstore.Match) ([]models.OfflineTransaction, error) {
	txs, bad, err := q.Scan(ctx, matches...)
	if err != nil {
		return nil, err
	}
	for _, r := range bad {
		q.log.Warn("unreadable offline transaction", zap.String("offline_id", r.OfflineID), zap.Error(r.Err))
	}
	return txs, nil
}

func sortByCreation(txs []models.OfflineTransaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].OfflineID < txs[j].OfflineID
	})
}

func (q *OfflineQueue) Get(ctx context.Context, offlineID string) (models.OfflineTransaction, error) {
	tx, found, err := localstore.GetAs[models.OfflineTransaction](ctx, q.store, localstore.OfflineTransactions, offlineID)
	if err != nil {
		return models.OfflineTransaction{}, err
	}
	if !found {
		return models.OfflineTransaction{}, ErrOfflineTransactionNotFound
	}
	return tx, nil
}

// Remove deletes one queued transaction. Only call it after the remote
// service confirmed the sale.
func (q *OfflineQueue) Remove(ctx context.Context, offlineID string) error {
	return q.store.Delete(ctx, localstore.OfflineTransactions, offlineID)
}

// ClearAll empties the queue. It exists for explicit operator resets only.
func (q *OfflineQueue) ClearAll(ctx context.Context) error {
	if err := q.store.Clear(ctx, localstore.OfflineTransactions); err != nil {
		return err
	}
	q.log.Warn("offline transaction queue cleared")
	return nil
}

func (q *OfflineQueue) Count(ctx context.Context) (int, error) {
	return q.store.Count(ctx, localstore.OfflineTransactions)
}
