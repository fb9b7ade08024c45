package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

const (
	requestTimeout = 3 * time.Second
	maxBodyBytes   = 64 << 10
)

type OrderLister interface {
	ListByUser(ctx context.Context, userID string) ([]order.Order, error)
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
}

type Handler struct {
	catalog catalog.Repository
	orders  OrderLister
	clients *storefront.Registry
	logger  *zap.Logger
}

func NewHandler(catalogRepo catalog.Repository, orders OrderLister, clients *storefront.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		catalog: catalogRepo,
		orders:  orders,
		clients: clients,
		logger:  logger.With(zap.String("component", "http")),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) client(r *http.Request) *storefront.Client {
	return h.clients.Client(ClientIDFrom(r.Context()))
}

// peekClient is client for read-only handlers. A client id minted on this
// request has no state yet, so no client is created for it and nil is
// returned.
func (h *Handler) peekClient(r *http.Request) *storefront.Client {
	if clientIDIssued(r.Context()) {
		return nil
	}
	return h.client(r)
}

// decodeJSON reads an optional JSON body of at most maxBodyBytes. An empty
// body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
