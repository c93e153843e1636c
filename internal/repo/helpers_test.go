package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/db"
	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T, path string) localstore.Store {
	t.Helper()
	database, err := db.Connect(context.Background(), db.DriverSQLite, path)
	require.NoError(t, err)
	st := localstore.NewSQLStore(database, db.DriverSQLite, nil)
	require.NoError(t, st.Init(context.Background()))
	return st
}

func newFlatStore(t *testing.T) localstore.Store {
	t.Helper()
	st := localstore.NewFlatStore(localstore.NewMemoryKV(), "test_", nil)
	require.NoError(t, st.Init(context.Background()))
	return st
}

// testStores returns one initialized store per backend.
func testStores(t *testing.T) map[string]localstore.Store {
	t.Helper()
	sqlite := openSQLite(t, filepath.Join(t.TempDir(), "pos.db"))
	t.Cleanup(func() { sqlite.Close() })
	return map[string]localstore.Store{
		"structured": sqlite,
		"flat":       newFlatStore(t),
	}
}

func strPtr(s string) *string { return &s }

func newProduct(id, outlet, sku string, active bool) models.Product {
	return models.Product{
		ID:        id,
		OutletID:  outlet,
		SKU:       sku,
		Name:      "Product " + id,
		UnitPrice: decimal.NewFromInt(250),
		TaxRate:   decimal.RequireFromString("0.1"),
		IsActive:  active,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newRequest(outlet, cashier string) models.TransactionRequest {
	req := models.TransactionRequest{
		OutletID:  outlet,
		CashierID: cashier,
		Items: []models.TransactionItem{
			{ProductID: "P1", Quantity: 2, UnitPrice: models.Price(decimal.NewFromInt(250))},
		},
		PaymentMethod:  "cash",
		AmountTendered: decimal.NewFromInt(500),
	}
	req.ComputeLineTotals()
	return req
}

// steppingClock returns a clock advancing one second per call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(time.Second)
		return now
	}
}
