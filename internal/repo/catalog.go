package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rogerio-castellano/pos-terminal/internal/localstore"
	"github.com/rogerio-castellano/pos-terminal/internal/models"
	"go.uber.org/zap"
)

// ErrProductNotFound is returned when a product is not in the cache.
var ErrProductNotFound = errors.New("product not found")

// CatalogCache mirrors the remote product catalog of an outlet so products
// can be looked up while the remote service is unreachable.
type CatalogCache struct {
	store localstore.Store
	now   func() time.Time
	log   *zap.Logger
}

func NewCatalogCache(store localstore.Store, log *zap.Logger) *CatalogCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogCache{store: store, now: time.Now, log: log}
}

// StoreProducts replaces the cached catalog of every outlet present in
// products. Outlets not present are left untouched.
func (c *CatalogCache) StoreProducts(ctx context.Context, products []models.Product) error {
	var outlets []string
	byOutlet := map[string][]models.Product{}
	for _, p := range products {
		if _, seen := byOutlet[p.OutletID]; !seen {
			outlets = append(outlets, p.OutletID)
		}
		byOutlet[p.OutletID] = append(byOutlet[p.OutletID], p)
	}
	for _, outletID := range outlets {
		if err := c.ReplaceOutlet(ctx, outletID, byOutlet[outletID]); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceOutlet makes products the whole cached catalog of outletID, an
// empty slice included. New rows are written before stale rows are
// removed, so an interrupted refresh leaves a superset rather than a gap.
func (c *CatalogCache) ReplaceOutlet(ctx context.Context, outletID string, products []models.Product) error {
	if outletID == "" {
		return errors.New("outlet id is required")
	}
	stamp := c.now().UTC()
	keep := make(map[string]bool, len(products))

	for _, p := range products {
		if p.OutletID != outletID {
			return fmt.Errorf("product %s belongs to outlet %q, not %q", p.ID, p.OutletID, outletID)
		}
		p.LastSyncedAt = &stamp
		if _, err := c.store.Put(ctx, localstore.Products, p); err != nil {
			return fmt.Errorf("failed to cache product %s: %w", p.ID, err)
		}
		keep[p.ID] = true
	}

	existing, err := localstore.GetAllAs[models.Product](ctx, c.store, localstore.Products, localstore.Eq("outlet_id", outletID))
	if err != nil {
		return fmt.Errorf("failed to list cached products of %s: %w", outletID, err)
	}
	removed := 0
	for _, p := range existing {
		if keep[p.ID] {
			continue
		}
		if err := c.store.Delete(ctx, localstore.Products, p.ID); err != nil {
			return fmt.Errorf("failed to drop stale product %s: %w", p.ID, err)
		}
		removed++
	}

	c.log.Debug("catalog cache refreshed",
		zap.String("outlet_id", outletID),
		zap.Int("stored", len(products)),
		zap.Int("removed", removed))
	return nil
}

// GetProducts returns the cached products of outletID matching pf. A read
// failure yields an empty list: an empty cache is a valid degraded state.
func (c *CatalogCache) GetProducts(ctx context.Context, outletID string, pf ProductFilter) []models.Product {
	matches := []localstore.Match{localstore.Eq("outlet_id", outletID)}
	if !pf.IncludeInactive {
		matches = append(matches, localstore.Eq("is_active", true))
	}
	products, err := localstore.GetAllAs[models.Product](ctx, c.store, localstore.Products, matches...)
	if err != nil {
		c.log.Warn("catalog cache read failed", zap.String("outlet_id", outletID), zap.Error(err))
		return []models.Product{}
	}
	return ApplyFilter(products, pf)
}

// GetByID returns one cached product.
func (c *CatalogCache) GetByID(ctx context.Context, id string) (models.Product, error) {
	p, found, err := localstore.GetAs[models.Product](ctx, c.store, localstore.Products, id)
	if err != nil {
		return models.Product{}, err
	}
	if !found {
		return models.Product{}, ErrProductNotFound
	}
	return p, nil
}

// FindByBarcode looks up an active or inactive product of outletID by barcode.
func (c *CatalogCache) FindByBarcode(ctx context.Context, outletID, barcode string) (models.Product, error) {
	return c.findOne(ctx, outletID, localstore.Eq("barcode", barcode))
}

// FindBySKU looks up a product of outletID by SKU.
func (c *CatalogCache) FindBySKU(ctx context.Context, outletID, sku string) (models.Product, error) {
	return c.findOne(ctx, outletID, localstore.Eq("sku", sku))
}

func (c *CatalogCache) findOne(ctx context.Context, outletID string, m localstore.Match) (models.Product, error) {
	products, err := localstore.GetAllAs[models.Product](ctx, c.store, localstore.Products, m, localstore.Eq("outlet_id", outletID))
	if err != nil {
		return models.Product{}, err
	}
	if len(products) == 0 {
		return models.Product{}, ErrProductNotFound
	}
	return products[0], nil
}
