package repo

import (
	"sort"
	"strings"

	"github.com/rogerio-castellano/pos-terminal/internal/models"
)

// ProductFilter narrows a product list. Inactive products are excluded
// unless IncludeInactive is set.
type ProductFilter struct {
	Category        string
	Search          string
	IncludeInactive bool
}

func matchesFilter(p models.Product, pf ProductFilter) bool {
	if !pf.IncludeInactive && !p.IsActive {
		return false
	}
	if pf.Category != "" && (p.Category == nil || !strings.EqualFold(*p.Category, pf.Category)) {
		return false
	}
	if pf.Search != "" {
		q := strings.ToLower(pf.Search)
		hit := strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.SKU), q) ||
			(p.Barcode != nil && strings.Contains(*p.Barcode, pf.Search))
		if !hit {
			return false
		}
	}
	return true
}

// ApplyFilter returns the products matching pf ordered for display:
// display order, then name, then id.
func ApplyFilter(products []models.Product, pf ProductFilter) []models.Product {
	filtered := []models.Product{}
	for _, p := range products {
		if matchesFilter(p, pf) {
			filtered = append(filtered, p)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return filtered
}
