package repo

import (
	"context"
	"testing"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productIDs(products []models.Product) []string {
	out := []string{}
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestCatalogCache_ReplaceNotMerge(t *testing.T) {
	ctx := context.Background()
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			cache := NewCatalogCache(st, nil)

			require.NoError(t, cache.StoreProducts(ctx, []models.Product{
				newProduct("A", "O1", "SKU-A", true),
				newProduct("B", "O1", "SKU-B", true),
			}))
			require.NoError(t, cache.StoreProducts(ctx, []models.Product{newProduct("C", "O1", "SKU-C", true)}))

			assert.Equal(t, []string{"C"}, productIDs(cache.GetProducts(ctx, "O1", ProductFilter{})))
		})
	}
}

func TestCatalogCache_OtherOutletsUntouched(t *testing.T) {
	ctx := context.Background()
	cache := NewCatalogCache(newFlatStore(t), nil)

	require.NoError(t, cache.StoreProducts(ctx, []models.Product{
		newProduct("A", "O1", "SKU-A", true),
		newProduct("X", "O2", "SKU-X", true),
	}))
	require.NoError(t, cache.StoreProducts(ctx, []models.Product{newProduct("B", "O1", "SKU-B", true)}))

	assert.Equal(t, []string{"X"}, productIDs(cache.GetProducts(ctx, "O2", ProductFilter{})))
}

func TestCatalogCache_ReplaceOutletWithEmptyClears(t *testing.T) {
	ctx := context.Background()
	cache := NewCatalogCache(newFlatStore(t), nil)
	require.NoError(t, cache.StoreProducts(ctx, []models.Product{newProduct("A", "O1", "SKU-A", true)}))

	require.NoError(t, cache.ReplaceOutlet(ctx, "O1", nil))
	assert.Empty(t, cache.GetProducts(ctx, "O1", ProductFilter{IncludeInactive: true}))
}

func TestCatalogCache_ReplaceOutletRejectsForeignProduct(t *testing.T) {
	cache := NewCatalogCache(newFlatStore(t), nil)
	err := cache.ReplaceOutlet(context.Background(), "O1", []models.Product{newProduct("X", "O2", "SKU-X", true)})
	assert.Error(t, err)
}

func TestCatalogCache_StampsLastSyncedAt(t *testing.T) {
	ctx := context.Background()
	cache := NewCatalogCache(newFlatStore(t), nil)
	stamp := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return stamp }

	require.NoError(t, cache.StoreProducts(ctx, []models.Product{newProduct("A", "O1", "SKU-A", true)}))

	p, err := cache.GetByID(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, p.LastSyncedAt)
	assert.True(t, p.LastSyncedAt.Equal(stamp), "last_synced_at %v, want %v", p.LastSyncedAt, stamp)
	assert.True(t, p.UnitPrice.Equal(newProduct("A", "O1", "", true).UnitPrice), "unit price %v", p.UnitPrice)
}

func TestCatalogCache_ActiveFilter(t *testing.T) {
	ctx := context.Background()
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			cache := NewCatalogCache(st, nil)
			drinks := newProduct("B", "O1", "WATER", true)
			drinks.Category = strPtr("Drinks")
			drinks.DisplayOrder = 1
			require.NoError(t, cache.StoreProducts(ctx, []models.Product{
				newProduct("A", "O1", "COKE35", true),
				drinks,
				newProduct("Z", "O1", "OLD", false),
			}))

			tests := []struct {
				name   string
				filter ProductFilter
				want   []string
			}{
				{"active only", ProductFilter{}, []string{"A", "B"}},
				{"include inactive", ProductFilter{IncludeInactive: true}, []string{"A", "Z", "B"}},
				{"category", ProductFilter{Category: "drinks"}, []string{"B"}},
				{"search sku", ProductFilter{Search: "coke"}, []string{"A"}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					assert.Equal(t, tt.want, productIDs(cache.GetProducts(ctx, "O1", tt.filter)))
				})
			}
		})
	}
}

func TestCatalogCache_Lookups(t *testing.T) {
	ctx := context.Background()
	for name, st := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			cache := NewCatalogCache(st, nil)
			p := newProduct("A", "O1", "COKE35", true)
			p.Barcode = strPtr("8991002")
			require.NoError(t, cache.StoreProducts(ctx, []models.Product{p, newProduct("B", "O2", "COKE35", true)}))

			got, err := cache.FindByBarcode(ctx, "O1", "8991002")
			require.NoError(t, err)
			assert.Equal(t, "A", got.ID)
			got, err = cache.FindBySKU(ctx, "O2", "COKE35")
			require.NoError(t, err)
			assert.Equal(t, "B", got.ID)

			_, err = cache.FindByBarcode(ctx, "O2", "8991002")
			assert.ErrorIs(t, err, ErrProductNotFound)
			_, err = cache.GetByID(ctx, "missing")
			assert.ErrorIs(t, err, ErrProductNotFound)
		})
	}
}

func TestCatalogCache_ReadFailureIsEmpty(t *testing.T) {
	uninitialized := localstore.NewFlatStore(localstore.NewMemoryKV(), "test_", nil)
	cache := NewCatalogCache(uninitialized, nil)

	got := cache.GetProducts(context.Background(), "O1", ProductFilter{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Error(t, cache.StoreProducts(context.Background(), []models.Product{newProduct("A", "O1", "S", true)}))
}
