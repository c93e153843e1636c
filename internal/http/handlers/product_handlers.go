package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"github.com/rogerio-castellano/pos-terminal/internal/repo"
)

// GetProductsHandler godoc
// @Summary List the products of an outlet
// @Description Remote catalog first; falls back to the local cache and flags the result as degraded
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param outletID path string true "Outlet ID"
// @Param category query string false "Category (case insensitive)"
// @Param search query string false "Matches name, SKU or barcode"
// @Param include_inactive query bool false "Include inactive products"
// @Success 200 {object} ProductsSearchResult
// @Failure 400 {object} ErrorResponse
// @Router /outlets/{outletID}/products [get]
func (s *Server) GetProductsHandler(w http.ResponseWriter, r *http.Request) {
	outletID := chi.URLParam(r, "outletID")
	q := r.URL.Query()

	pf := repo.ProductFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if v := q.Get("include_inactive"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, r, &pos.ValidationError{Problems: []string{"include_inactive must be a boolean"}})
			return
		}
		pf.IncludeInactive = include
	}

	list, err := s.pos.GetProducts(r.Context(), outletID, pf)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, ProductsSearchResult{
		Data: list.Products,
		Meta: Meta{TotalCount: len(list.Products), Degraded: list.Degraded, Source: list.Source},
	})
}

// LookupProductHandler godoc
// @Summary Look up a cached product by barcode or SKU
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param outletID path string true "Outlet ID"
// @Param barcode query string false "Barcode"
// @Param sku query string false "SKU"
// @Success 200 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /outlets/{outletID}/products/lookup [get]
func (s *Server) LookupProductHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p, err := s.pos.LookupProduct(r.Context(), chi.URLParam(r, "outletID"), q.Get("barcode"), q.Get("sku"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, p)
}
