package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

func (h *Handler) currentUser(r *http.Request) *session.User {
	c := h.peekClient(r)
	if c == nil {
		return nil
	}
	return c.Session.Current()
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	orders, err := h.orders.ListByUser(ctx, user.ID)
	if err != nil {
		h.logger.Error("list orders", zap.String("user_id", user.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder returns one of the signed-in user's orders. Orders of other users
// are reported as missing.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	orderID := chi.URLParam(r, "orderId")
	o, err := h.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("get order", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	if o.UserID != user.ID {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, http.StatusOK, o)
}
