// Package syncer replays offline sales and queued operations against the
// remote service.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/rogerio-castellano/pos-terminal/internal/remote"
	"github.com/rogerio-castellano/pos-terminal/internal/repo"
	"go.uber.org/zap"
)

const (
	DefaultCallTimeout = 5 * time.Second
	DefaultMaxAttempts = 10
)

// Remote is the part of the remote service a sync pass talks to.
type Remote interface {
	CreateTransaction(ctx context.Context, req models.TransactionRequest, idempotencyKey string) (models.Transaction, error)
	SendOperation(ctx context.Context, opType string, payload json.RawMessage) error
}

type Options struct {
	// CallTimeout bounds every single remote call.
	CallTimeout time.Duration
	// MaxAttempts parks an outbox entry as failed after this many failures.
	MaxAttempts int
}

// Failure describes a record left queued after a pass.
type Failure struct {
	ID       string `json:"id"`
	Reason   string `json:"reason"`
	Rejected bool   `json:"rejected"`
}

type Result struct {
	Synced       int       `json:"synced"`
	Failed       []Failure `json:"failed"`
	OutboxSent   int       `json:"outbox_sent"`
	OutboxFailed int       `json:"outbox_failed"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Engine drains the offline transaction queue and the operation outbox.
// Passes never overlap: a scheduled pass and a manual trigger run one
// after the other.
type Engine struct {
	queue  *repo.OfflineQueue
	outbox *repo.SyncQueue
	remote Remote
	opts   Options
	mu     sync.Mutex
	now    func() time.Time
	log    *zap.Logger
}

// NewEngine builds an engine. outbox may be nil to replay sales only.
func NewEngine(queue *repo.OfflineQueue, outbox *repo.SyncQueue, rc Remote, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	return &Engine{
		queue:  queue,
		outbox: outbox,
		remote: rc,
		opts:   opts,
		now:    time.Now,
		log:    log,
	}
}

// Drain runs one sync pass. Each queued sale is replayed with its original
// request and its offline id as idempotency key, and removed only after the
// remote service accepted it. A failing record never affects the others;
// records that no longer decode are reported as failures and kept. The only
// error returned is a failure to read the offline queue.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{StartedAt: e.now().UTC(), Failed: []Failure{}}
	txs, unreadable, err := e.queue.Scan(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to read offline queue: %w", err)
	}
	for _, r := range unreadable {
		e.log.Error("offline transaction cannot be decoded, left queued",
			zap.String("offline_id", r.OfflineID), zap.Error(r.Err))
		res.Failed = append(res.Failed, Failure{ID: r.OfflineID, Reason: "unreadable record: " + r.Err.Error()})
	}

	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, Failure{ID: tx.OfflineID, Reason: err.Error()})
			continue
		}
		if f := e.replay(ctx, tx); f != nil {
			res.Failed = append(res.Failed, *f)
			continue
		}
		res.Synced++
	}

	if e.outbox != nil {
		res.OutboxSent, res.OutboxFailed = e.drainOutbox(ctx)
	}

	res.FinishedAt = e.now().UTC()
	e.log.Info("sync pass finished",
		zap.Int("queued", len(txs)+len(unreadable)),
		zap.Int("synced", res.Synced),
		zap.Int("failed", len(res.Failed)),
		zap.Int("outbox_sent", res.OutboxSent),
		zap.Int("outbox_failed", res.OutboxFailed),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return res, nil
}

func (e *Engine) replay(ctx context.Context, tx models.OfflineTransaction) *Failure {
	callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()

	_, err := e.remote.CreateTransaction(callCtx, tx.TransactionRequest, tx.OfflineID)
	if remote.IsAcceptedUnreadable(err) {
		e.log.Warn("remote accepted offline transaction with an unreadable reply",
			zap.String("offline_id", tx.OfflineID), zap.Error(err))
		err = nil
	}
	if err != nil {
		rejected := remote.IsRejection(err)
		log := e.log.Warn
		if rejected {
			log = e.log.Error
		}
		log("offline transaction not accepted",
			zap.String("offline_id", tx.OfflineID),
			zap.Bool("rejected", rejected),
			zap.Error(err))
		return &Failure{ID: tx.OfflineID, Reason: err.Error(), Rejected: rejected}
	}

	// Accepted remotely. If the delete fails the record is replayed next
	// pass under the same idempotency key.
	if err := e.queue.Remove(ctx, tx.OfflineID); err != nil {
		e.log.Error("synced transaction could not be removed", zap.String("offline_id", tx.OfflineID), zap.Error(err))
		return &Failure{ID: tx.OfflineID, Reason: "accepted remotely but not removed: " + err.Error()}
	}
	e.log.Debug("offline transaction synced", zap.String("offline_id", tx.OfflineID))
	return nil
}

func (e *Engine) drainOutbox(ctx context.Context) (sent, failed int) {
	entries, err := e.outbox.Pending(ctx)
	if err != nil {
		e.log.Warn("failed to read operation outbox", zap.Error(err))
		return 0, 0
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		callCtx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
		err := e.remote.SendOperation(callCtx, entry.Type, entry.Payload)
		cancel()

		if err == nil {
			if err := e.outbox.Remove(ctx, entry.ID); err != nil {
				e.log.Error("sent operation could not be removed", zap.Int64("id", entry.ID), zap.Error(err))
				failed++
				continue
			}
			sent++
			continue
		}

		failed++
		limit := e.opts.MaxAttempts
		if remote.IsRejection(err) {
			limit = entry.Attempts + 1
		}
		updated, recErr := e.outbox.RecordFailure(ctx, entry, err, limit)
		if recErr != nil {
			e.log.Error("failed to record outbox attempt", zap.Int64("id", entry.ID), zap.Error(errors.Join(err, recErr)))
			continue
		}
		if updated.Status == models.SyncEntryFailed {
			e.log.Warn("operation parked after repeated failures",
				zap.Int64("id", entry.ID),
				zap.String("type", entry.Type),
				zap.Int("attempts", updated.Attempts),
				zap.Error(err))
		}
	}
	return sent, failed
}
