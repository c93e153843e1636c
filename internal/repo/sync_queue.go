package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

var ErrSyncEntryNotFound = errors.New("sync queue entry not found")

// SyncQueue buffers outbound operations other than sales. Entries keep an
// attempt counter; once it reaches the configured maximum the entry is
// parked as failed until requeued.
type SyncQueue struct {
	store localstore.Store
	now   func() time.Time
}

func NewSyncQueue(store localstore.Store) *SyncQueue {
	return &SyncQueue{store: store, now: time.Now}
}

// Push queues an operation of the given type and returns its sequence id.
func (q *SyncQueue) Push(ctx context.Context, opType string, payload any) (int64, error) {
	if opType == "" {
		return 0, errors.New("operation type is required")
	}
	raw, ok := payload.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return 0, fmt.Errorf("failed to encode %s payload: %w", opType, err)
		}
	}
	now := q.now().UTC()
	key, err := q.store.Put(ctx, localstore.SyncQueue, models.SyncQueueEntry{
		Type:      opType,
		Payload:   raw,
		Status:    models.SyncEntryPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to queue %s operation: %w", opType, err)
	}
	return strconv.ParseInt(key, 10, 64)
}

// Pending returns pending entries oldest first.
func (q *SyncQueue) Pending(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return q.byStatus(ctx, models.SyncEntryPending)
}

// Failed returns entries that exhausted their attempts.
func (q *SyncQueue) Failed(ctx context.Context) ([]models.SyncQueueEntry, error) {
	return q.byStatus(ctx, models.SyncEntryFailed)
}

func (q *SyncQueue) byStatus(ctx context.Context, status string) ([]models.SyncQueueEntry, error) {
	entries, err := localstore.GetAllAs[models.SyncQueueEntry](ctx, q.store, localstore.SyncQueue, localstore.Eq("status", status))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// RecordFailure bumps the attempt counter of entry and parks it as failed
// once maxAttempts is reached. It returns the updated entry.
func (q *SyncQueue) RecordFailure(ctx context.Context, entry models.SyncQueueEntry, cause error, maxAttempts int) (models.SyncQueueEntry, error) {
	entry.Attempts++
	entry.LastError = cause.Error()
	entry.UpdatedAt = q.now().UTC()
	if maxAttempts > 0 && entry.Attempts >= maxAttempts {
		entry.Status = models.SyncEntryFailed
	}
	if _, err := q.store.Put(ctx, localstore.SyncQueue, entry); err != nil {
		return entry, fmt.Errorf("failed to record attempt on sync entry %d: %w", entry.ID, err)
	}
	return entry, nil
}

// RequeueFailed moves every failed entry back to pending with a fresh
// attempt counter and returns how many were moved.
func (q *SyncQueue) RequeueFailed(ctx context.Context) (int, error) {
	failed, err := q.Failed(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range failed {
		e.Status = models.SyncEntryPending
		e.Attempts = 0
		e.UpdatedAt = q.now().UTC()
		if _, err := q.store.Put(ctx, localstore.SyncQueue, e); err != nil {
			return 0, fmt.Errorf("failed to requeue sync entry %d: %w", e.ID, err)
		}
	}
	return len(failed), nil
}

func (q *SyncQueue) Get(ctx context.Context, id int64) (models.SyncQueueEntry, error) {
	e, found, err := localstore.GetAs[models.SyncQueueEntry](ctx, q.store, localstore.SyncQueue, strconv.FormatInt(id, 10))
	if err != nil {
		return models.SyncQueueEntry{}, err
	}
	if !found {
		return models.SyncQueueEntry{}, ErrSyncEntryNotFound
	}
	return e, nil
}

func (q *SyncQueue) Remove(ctx context.Context, id int64) error {
	return q.store.Delete(ctx, localstore.SyncQueue, strconv.FormatInt(id, 10))
}

// PendingCount is the number of entries still to be sent.
func (q *SyncQueue) PendingCount(ctx context.Context) (int, error) {
	entries, err := q.store.GetAll(ctx, localstore.SyncQueue, localstore.Eq("status", models.SyncEntryPending))
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
