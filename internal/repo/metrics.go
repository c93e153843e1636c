package repo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

type Metrics struct {
	Backend             string     `json:"backend"`
	CachedProducts      int        `json:"cached_products"`
	ActiveProducts      int        `json:"active_products"`
	LowStockCount       int        `json:"low_stock_count"`
	OfflineTransactions int        `json:"offline_transactions"`
	PendingOperations   int        `json:"pending_operations"`
	FailedOperations    int        `json:"failed_operations"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	LastSyncCount       int        `json:"last_sync_count"`
}

// MetricsRepository summarizes the local store for the dashboard.
type MetricsRepository struct {
	store    localstore.Store
	settings *SettingsRepository
}

func NewMetricsRepository(store localstore.Store, settings *SettingsRepository) *MetricsRepository {
	return &MetricsRepository{store: store, settings: settings}
}

func (r *MetricsRepository) GetDashboardMetrics(ctx context.Context) (Metrics, error) {
	m := Metrics{Backend: r.store.Backend()}

	products, err := localstore.GetAllAs[models.Product](ctx, r.store, localstore.Products)
	if err != nil {
		return m, err
	}
	m.CachedProducts = len(products)
	for _, p := range products {
		if p.IsActive {
			m.ActiveProducts++
			if p.LowStock() {
				m.LowStockCount++
			}
		}
	}

	if m.OfflineTransactions, err = r.store.Count(ctx, localstore.OfflineTransactions); err != nil {
		return m, err
	}

	pending, err := r.store.GetAll(ctx, localstore.SyncQueue, localstore.Eq("status", models.SyncEntryPending))
	if err != nil {
		return m, err
	}
	m.PendingOperations = len(pending)
	failed, err := r.store.GetAll(ctx, localstore.SyncQueue, localstore.Eq("status", models.SyncEntryFailed))
	if err != nil {
		return m, err
	}
	m.FailedOperations = len(failed)

	lastSync, err := r.settings.GetTime(ctx, SettingLastSyncAt)
	switch {
	case err == nil:
		m.LastSyncAt = &lastSync
	case !errors.Is(err, ErrSettingNotFound):
		return m, err
	}
	if s, err := r.settings.Get(ctx, SettingLastSyncCount); err == nil {
		m.LastSyncCount, _ = strconv.Atoi(s.Value)
	}

	return m, nil
}
