package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
)

type cartResponse struct {
	Items      []cart.Line     `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	ItemCount  int             `json:"itemCount"`
	DrawerOpen bool            `json:"drawerOpen"`
	State      cart.State      `json:"state"`
}

func newCartResponse(s *cart.Synchronizer) cartResponse {
	return cartResponse{
		Items:      s.Lines(),
		Subtotal:   s.Subtotal(),
		ItemCount:  s.ItemCount(),
		DrawerOpen: s.DrawerOpen(),
		State:      s.State(),
	}
}

// snapshotOf freezes the catalog fields a cart line keeps.
func snapshotOf(p catalog.Product) cart.Product {
	return cart.Product{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Category:  p.Category,
		Price:     cart.Price(p.Price),
		Status:    p.Status,
	}
}

func emptyCartResponse() cartResponse {
	return cartResponse{Items: []cart.Line{}, Subtotal: decimal.Zero, State: cart.StateGuest}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c := h.peekClient(r)
	if c == nil {
		writeJSON(w, http.StatusOK, emptyCartResponse())
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(c.Cart))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"productId"`
		Quantity  *int   `json:"quantity"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}
	if body.ProductID == "" {
		writeError(w, http.StatusBadRequest, "missing productId")
		return
	}
	quantity := 1
	if body.Quantity != nil {
		quantity = *body.Quantity
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.catalog.Get(ctx, body.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("load product", zap.String("product_id", body.ProductID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}

	sc := h.client(r).Cart
	if err := sc.AddToCart(snapshotOf(p), quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(sc))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity *int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}
	if body.Quantity == nil {
		writeError(w, http.StatusBadRequest, "missing quantity")
		return
	}

	sc := h.client(r).Cart
	if err := sc.UpdateQuantity(chi.URLParam(r, "productId"), *body.Quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(sc))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c := h.peekClient(r)
	if c == nil {
		writeJSON(w, http.StatusOK, emptyCartResponse())
		return
	}
	sc := c.Cart
	sc.RemoveFromCart(chi.URLParam(r, "productId"))
	writeJSON(w, http.StatusOK, newCartResponse(sc))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c := h.peekClient(r)
	if c == nil {
		writeJSON(w, http.StatusOK, emptyCartResponse())
		return
	}
	sc := c.Cart
	sc.ClearCart()
	writeJSON(w, http.StatusOK, newCartResponse(sc))
}

// SetDrawer opens or closes the drawer; without "open" it toggles.
func (h *Handler) SetDrawer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Open *bool `json:"open"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}

	sc := h.client(r).Cart
	if body.Open == nil {
		sc.ToggleDrawer()
	} else {
		sc.SetDrawerOpen(*body.Open)
	}
	writeJSON(w, http.StatusOK, newCartResponse(sc))
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerName string `json:"customerName"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeBodyError(w, err)
		return
	}

	c := h.peekClient(r)
	if c == nil {
		writeError(w, http.StatusUnauthorized, cart.ErrNotAuthenticated.Error())
		return
	}
	res := c.Cart.Checkout(r.Context(), body.CustomerName)
	switch {
	case res.Success:
		writeJSON(w, http.StatusCreated, res.Order)
	case errors.Is(res.Err, cart.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, res.Err.Error())
	case errors.Is(res.Err, cart.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, res.Err.Error())
	default:
		writeError(w, http.StatusBadGateway, "failed to place order")
	}
}
