// Package pos is the entry point the terminal's outer layers call. It hides
// the choice between the remote service and the local cache and queue.
package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/rogerio-castellano/pos-terminal/internal/remote"
	"github.com/rogerio-castellano/pos-terminal/internal/repo"
	"github.com/rogerio-castellano/pos-terminal/internal/syncer"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SourceRemote = "remote"
	SourceCache  = "cache"
)

var (
	ErrInvalidRequest = errors.New("invalid transaction request")
	// ErrOfflineQueueWrite means the remote service was unreachable and the
	// sale could not be stored locally either. The sale is not recorded.
	ErrOfflineQueueWrite = errors.New("failed to store offline transaction")
)

// Remote is the remote service as seen by the terminal.
type Remote interface {
	FetchProducts(ctx context.Context, outletID string) ([]models.Product, error)
	syncer.Remote
}

type Options struct {
	// CallTimeout bounds every remote call so a hung network degrades to
	// the offline path.
	CallTimeout time.Duration
	// OutboxMaxAttempts is passed to the sync engine.
	OutboxMaxAttempts int
	// OutletID is the outlet this terminal sells for, used by Status.
	OutletID string
}

type ProductList struct {
	Products []models.Product `json:"products"`
	Degraded bool             `json:"degraded"`
	Source   string           `json:"source"`
}

// TransactionResult is either a confirmed sale or a pending one queued
// offline. A pending result carries a locally built Transaction so a
// receipt can still be printed.
type TransactionResult struct {
	Transaction models.Transaction `json:"transaction"`
	Pending     bool               `json:"pending"`
	OfflineID   string             `json:"offline_id,omitempty"`
}

type Status struct {
	repo.Metrics
	OutletID        string     `json:"outlet_id,omitempty"`
	CatalogSyncedAt *time.Time `json:"catalog_synced_at,omitempty"`
	// OnlineOnly is set when no local store could be opened: there is no
	// catalog cache and no offline queue.
	OnlineOnly bool `json:"online_only"`
}

type Service struct {
	remote   Remote
	catalog  *repo.CatalogCache
	queue    *repo.OfflineQueue
	outbox   *repo.SyncQueue
	settings *repo.SettingsRepository
	metrics  *repo.MetricsRepository
	engine   *syncer.Engine
	noStore  bool
	opts     Options
	now      func() time.Time
	log      *zap.Logger
}

// NewService wires the repositories and the sync engine over one
// initialized store. Given a localstore.UnavailableStore the service runs
// online only: reads return an empty degraded catalog when the remote is
// down and sales that cannot reach it fail with ErrOfflineQueueWrite.
func NewService(store localstore.Store, rc Remote, opts Options, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = syncer.DefaultCallTimeout
	}
	queue := repo.NewOfflineQueue(store, log.Named("queue"))
	outbox := repo.NewSyncQueue(store)
	settings := repo.NewSettingsRepository(store)
	return &Service{
		remote:   rc,
		catalog:  repo.NewCatalogCache(store, log.Named("catalog")),
		queue:    queue,
		outbox:   outbox,
		settings: settings,
		metrics:  repo.NewMetricsRepository(store, settings),
		engine: syncer.NewEngine(queue, outbox, rc, syncer.Options{
			CallTimeout: opts.CallTimeout,
			MaxAttempts: opts.OutboxMaxAttempts,
		}, log.Named("sync")),
		noStore: localstore.IsUnavailable(store),
		opts:    opts,
		now:     time.Now,
		log:     log,
	}
}

// OnlineOnly reports whether the service runs without a local store.
func (s *Service) OnlineOnly() bool { return s.noStore }

// GetProducts asks the remote service first and writes the result through
// to the cache. When the remote call fails the cached catalog is returned
// with Degraded set.
func (s *Service) GetProducts(ctx context.Context, outletID string, pf repo.ProductFilter) (ProductList, error) {
	if outletID == "" {
		return ProductList{}, fmt.Errorf("%w: outlet id is required", ErrInvalidRequest)
	}
	products, err := s.RefreshCatalog(ctx, outletID)
	if err != nil {
		s.log.Warn("remote catalog unavailable, serving cache", zap.String("outlet_id", outletID), zap.Error(err))
		return ProductList{
			Products: s.catalog.GetProducts(ctx, outletID, pf),
			Degraded: true,
			Source:   SourceCache,
		}, nil
	}
	return ProductList{Products: repo.ApplyFilter(products, pf), Source: SourceRemote}, nil
}

// RefreshCatalog fetches the outlet catalog and replaces the cached copy.
// Only the remote fetch can fail it; cache write failures are logged.
func (s *Service) RefreshCatalog(ctx context.Context, outletID string) ([]models.Product, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	fetched, err := s.remote.FetchProducts(callCtx, outletID)
	cancel()
	if err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(fetched))
	for _, p := range fetched {
		if p.OutletID == "" {
			p.OutletID = outletID
		}
		if p.OutletID != outletID {
			s.log.Warn("remote returned product of another outlet", zap.String("product_id", p.ID), zap.String("outlet_id", p.OutletID))
			continue
		}
		products = append(products, p)
	}

	if s.noStore {
		return products, nil
	}
	if err := s.catalog.ReplaceOutlet(ctx, outletID, products); err != nil {
		s.log.Error("failed to refresh catalog cache", zap.String("outlet_id", outletID), zap.Error(err))
		return products, nil
	}
	if err := s.settings.SetTime(ctx, repo.CatalogSyncedAtKey(outletID), s.now()); err != nil {
		s.log.Warn("failed to record catalog refresh", zap.Error(err))
	}
	return products, nil
}

// LookupProduct finds a cached product by barcode or SKU.
func (s *Service) LookupProduct(ctx context.Context, outletID, barcode, sku string) (models.Product, error) {
	switch {
	case barcode != "":
		return s.catalog.FindByBarcode(ctx, outletID, barcode)
	case sku != "":
		return s.catalog.FindBySKU(ctx, outletID, sku)
	default:
		return models.Product{}, fmt.Errorf("%w: barcode or sku is required", ErrInvalidRequest)
	}
}

// CreateTransaction records a sale remote first. A network failure sends it
// to the offline queue; a business rejection is returned as is. The offline
// id is generated before the remote call and sent as its idempotency key,
// so a sale the remote accepted without our knowing is not recorded twice
// when the queue is replayed. That includes a 2xx whose body could not be
// read: the sale is queued so the replay fetches a proper confirmation.
func (s *Service) CreateTransaction(ctx context.Context, req models.TransactionRequest) (TransactionResult, error) {
	if err := s.prepare(ctx, &req); err != nil {
		return TransactionResult{}, err
	}
	offlineID := repo.NewOfflineID(s.now())

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	tx, err := s.remote.CreateTransaction(callCtx, req, offlineID)
	cancel()
	accepted := remote.IsAcceptedUnreadable(err)
	switch {
	case err == nil:
		return TransactionResult{Transaction: tx}, nil
	case accepted:
		s.log.Warn("remote accepted transaction but its reply was unreadable, queueing for replay",
			zap.String("offline_id", offlineID), zap.Error(err))
	case remote.IsNetworkError(err):
		s.log.Warn("remote unavailable, queueing transaction offline", zap.String("offline_id", offlineID), zap.Error(err))
	default:
		return TransactionResult{}, err
	}

	if qerr := s.queue.EnqueueAs(ctx, offlineID, req); qerr != nil {
		if accepted {
			// Recorded remotely already; a second ring would be a second sale.
			s.log.Error("accepted transaction could not be queued for confirmation",
				zap.String("offline_id", offlineID), zap.Error(qerr))
			return TransactionResult{
				Transaction: s.provisionalTransaction(ctx, offlineID, req, models.TransactionStatusCompleted),
				OfflineID:   offlineID,
			}, nil
		}
		return TransactionResult{}, fmt.Errorf("%w: %w", ErrOfflineQueueWrite, qerr)
	}
	return TransactionResult{
		Transaction: s.provisionalTransaction(ctx, offlineID, req, models.TransactionStatusOffline),
		Pending:     true,
		OfflineID:   offlineID,
	}, nil
}

// prepare validates req, prices lines that came without a unit price from
// the cache and computes line totals. An explicit zero price is kept.
func (s *Service) prepare(ctx context.Context, req *models.TransactionRequest) error {
	var problems []string
	if req.OutletID == "" {
		problems = append(problems, "outlet_id is required")
	}
	if req.CashierID == "" {
		problems = append(problems, "cashier_id is required")
	}
	if req.PaymentMethod == "" {
		problems = append(problems, "payment_method is required")
	}
	if len(req.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	if req.AmountTendered.IsNegative() || req.DiscountAmount.IsNegative() {
		problems = append(problems, "amounts must not be negative")
	}
	for i, it := range req.Items {
		if it.ProductID == "" {
			problems = append(problems, fmt.Sprintf("items[%d].product_id is required", i))
		}
		if it.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("items[%d].quantity must be positive", i))
		}
		if (it.UnitPrice.Valid && it.UnitPrice.Decimal.IsNegative()) || it.DiscountAmount.IsNegative() {
			problems = append(problems, fmt.Sprintf("items[%d] amounts must not be negative", i))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	for i := range req.Items {
		it := &req.Items[i]
		if it.UnitPrice.Valid {
			continue
		}
		p, err := s.catalog.GetByID(ctx, it.ProductID)
		if err != nil || p.OutletID != req.OutletID {
			problems = append(problems, fmt.Sprintf("items[%d]: no price known for product %s", i, it.ProductID))
			continue
		}
		it.UnitPrice = models.Price(p.UnitPrice)
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	req.ComputeLineTotals()
	return nil
}

// provisionalTransaction builds the receipt view of a sale the remote has
// not confirmed. Tax uses the cached rates on the lines after the order
// discount is spread over them in proportion to their totals; the remote
// service recomputes totals on sync.
func (s *Service) provisionalTransaction(ctx context.Context, offlineID string, req models.TransactionRequest, status string) models.Transaction {
	subtotal := req.Subtotal()
	lines := decimal.Zero
	for _, it := range req.Items {
		lines = lines.Add(it.LineTotal)
	}
	share := decimal.NewFromInt(1)
	if lines.IsPositive() {
		share = subtotal.Div(lines)
	}
	tax := decimal.Zero
	for _, it := range req.Items {
		if p, err := s.catalog.GetByID(ctx, it.ProductID); err == nil {
			tax = tax.Add(it.LineTotal.Mul(share).Mul(p.TaxRate))
		}
	}
	tax = tax.Round(2)
	total := subtotal.Add(tax)
	change := req.AmountTendered.Sub(total)
	if change.IsNegative() {
		change = decimal.Zero
	}
	return models.Transaction{
		ID:                offlineID,
		TransactionNumber: offlineID,
		OutletID:          req.OutletID,
		CashierID:         req.CashierID,
		CustomerID:        req.CustomerID,
		Items:             req.Items,
		Subtotal:          subtotal,
		TaxAmount:         tax,
		DiscountAmount:    req.DiscountAmount,
		Total:             total,
		PaymentMethod:     req.PaymentMethod,
		AmountTendered:    req.AmountTendered,
		ChangeGiven:       change,
		Status:            status,
		CreatedAt:         s.now().UTC(),
	}
}

// SyncNow runs one sync pass and records its outcome in the settings.
// Without a local store there is nothing queued and the pass is empty.
func (s *Service) SyncNow(ctx context.Context) (syncer.Result, error) {
	if s.noStore {
		now := s.now().UTC()
		return syncer.Result{Failed: []syncer.Failure{}, StartedAt: now, FinishedAt: now}, nil
	}
	res, err := s.engine.Drain(ctx)
	if err != nil {
		return res, err
	}
	if err := s.settings.SetTime(ctx, repo.SettingLastSyncAt, res.FinishedAt); err != nil {
		s.log.Warn("failed to record sync time", zap.Error(err))
	}
	if err := s.settings.Set(ctx, repo.SettingLastSyncCount, strconv.Itoa(res.Synced)); err != nil {
		s.log.Warn("failed to record sync count", zap.Error(err))
	}
	return res, nil
}

// SyncOfflineTransactions runs a sync pass and returns how many queued
// sales the remote service accepted.
func (s *Service) SyncOfflineTransactions(ctx context.Context) (int, error) {
	res, err := s.SyncNow(ctx)
	return res.Synced, err
}

func (s *Service) GetOfflineTransactionCount(ctx context.Context) (int, error) {
	return s.queue.Count(ctx)
}

// ListOfflineTransactions lists queued sales, all of them or those of one cashier.
func (s *Service) ListOfflineTransactions(ctx context.Context, cashierID string) ([]models.OfflineTransaction, error) {
	if cashierID == "" {
		return s.queue.ListAll(ctx)
	}
	return s.queue.ListByCashier(ctx, cashierID)
}

// ClearOfflineTransactions drops every queued sale, synced or not.
func (s *Service) ClearOfflineTransactions(ctx context.Context) error {
	return s.queue.ClearAll(ctx)
}

// QueueOperation adds a generic operation to the outbox. It is delivered by
// the next sync pass.
func (s *Service) QueueOperation(ctx context.Context, opType string, payload json.RawMessage) (int64, error) {
	if opType == "" {
		return 0, fmt.Errorf("%w: operation type is required", ErrInvalidRequest)
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return 0, fmt.Errorf("%w: payload must be valid JSON", ErrInvalidRequest)
	}
	return s.outbox.Push(ctx, opType, payload)
}

// RequeueFailedOperations gives parked outbox entries a fresh set of attempts.
func (s *Service) RequeueFailedOperations(ctx context.Context) (int, error) {
	return s.outbox.RequeueFailed(ctx)
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	if s.noStore {
		return Status{
			Metrics:    repo.Metrics{Backend: localstore.BackendNone},
			OutletID:   s.opts.OutletID,
			OnlineOnly: true,
		}, nil
	}
	m, err := s.metrics.GetDashboardMetrics(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Metrics: m, OutletID: s.opts.OutletID}
	if s.opts.OutletID != "" {
		if t, err := s.settings.GetTime(ctx, repo.CatalogSyncedAtKey(s.opts.OutletID)); err == nil {
			st.CatalogSyncedAt = &t
		}
	}
	return st, nil
}
