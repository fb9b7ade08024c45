package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, ok := h.loadProducts(w, r)
	if !ok {
		return
	}

	qs := r.URL.Query()
	available, _ := strconv.ParseBool(qs.Get("available"))
	writeJSON(w, http.StatusOK, catalog.Apply(products, catalog.Query{
		Text:          qs.Get("q"),
		Category:      qs.Get("category"),
		AvailableOnly: available,
		Sort:          catalog.ParseSort(qs.Get("sort")),
	}))
}

func (h *Handler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	if products, ok := h.loadProducts(w, r); ok {
		writeJSON(w, http.StatusOK, catalog.Featured(products))
	}
}

func (h *Handler) NewArrivals(w http.ResponseWriter, r *http.Request) {
	if products, ok := h.loadProducts(w, r); ok {
		writeJSON(w, http.StatusOK, catalog.NewArrivals(products))
	}
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.catalog.Get(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("load product", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Categories)
}

func (h *Handler) loadProducts(w http.ResponseWriter, r *http.Request) ([]catalog.Product, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	products, err := h.catalog.List(ctx)
	if err != nil {
		h.logger.Error("load products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load products")
		return nil, false
	}
	return products, true
}
