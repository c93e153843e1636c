package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRepository_GetDashboardMetrics(t *testing.T) {
	ctx := context.Background()
	st := newFlatStore(t)
	settings := NewSettingsRepository(st)
	r := NewMetricsRepository(st, settings)

	m, err := r.GetDashboardMetrics(ctx)
	require.NoError(t, err)
	assert.Zero(t, m.CachedProducts)
	assert.Nil(t, m.LastSyncAt)
	assert.Equal(t, "flat:memory", m.Backend)

	low := newProduct("B", "O1", "SKU-B", true)
	low.QuantityOnHand, low.ReorderLevel = 2, 5
	require.NoError(t, NewCatalogCache(st, nil).StoreProducts(ctx, []models.Product{
		newProduct("A", "O1", "SKU-A", true),
		low,
		newProduct("C", "O1", "SKU-C", false),
	}))
	_, err = NewOfflineQueue(st, nil).Enqueue(ctx, newRequest("O1", "C1"))
	require.NoError(t, err)
	sq := NewSyncQueue(st)
	_, err = sq.Push(ctx, "customer", map[string]any{})
	require.NoError(t, err)
	id, err := sq.Push(ctx, "customer", map[string]any{})
	require.NoError(t, err)
	entry, err := sq.Get(ctx, id)
	require.NoError(t, err)
	_, err = sq.RecordFailure(ctx, entry, errors.New("boom"), 1)
	require.NoError(t, err)

	last := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	require.NoError(t, settings.SetTime(ctx, SettingLastSyncAt, last))
	require.NoError(t, settings.Set(ctx, SettingLastSyncCount, "4"))

	m, err = r.GetDashboardMetrics(ctx)
	require.NoError(t, err)
	require.NotNil(t, m.LastSyncAt)
	assert.True(t, m.LastSyncAt.Equal(last), "last sync %v, want %v", m.LastSyncAt, last)
	m.LastSyncAt = nil
	assert.Equal(t, Metrics{
		Backend:             "flat:memory",
		CachedProducts:      3,
		ActiveProducts:      2,
		LowStockCount:       1,
		OfflineTransactions: 1,
		PendingOperations:   1,
		FailedOperations:    1,
		LastSyncCount:       4,
	}, m)
}
