package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents one sellable item at one outlet, as mirrored from the
// remote catalog.
type Product struct {
	ID              string           `json:"id"`
	OutletID        string           `json:"outlet_id"`
	SKU             string           `json:"sku"`
	Barcode         *string          `json:"barcode,omitempty"`
	Name            string           `json:"name"`
	Category        *string          `json:"category,omitempty"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	CostPrice       *decimal.Decimal `json:"cost_price,omitempty"`
	TaxRate         decimal.Decimal  `json:"tax_rate"`
	QuantityOnHand  int              `json:"quantity_on_hand"`
	ReorderLevel    int              `json:"reorder_level"`
	ReorderQuantity int              `json:"reorder_quantity"`
	IsActive        bool             `json:"is_active"`
	VendorID        *string          `json:"vendor_id,omitempty"`
	ImageURL        *string          `json:"image_url,omitempty"`
	DisplayOrder    int              `json:"display_order"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	// LastSyncedAt is set locally whenever the catalog cache is refreshed.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// LowStock reports whether the on-hand quantity reached the reorder level.
func (p Product) LowStock() bool {
	return p.ReorderLevel > 0 && p.QuantityOnHand <= p.ReorderLevel
}
