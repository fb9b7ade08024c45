package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/localstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
)

type fakeCatalog struct {
	products []catalog.Product
	err      error
}

func (f *fakeCatalog) List(ctx context.Context) ([]catalog.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeCatalog) Get(ctx context.Context, productID string) (catalog.Product, error) {
	if f.err != nil {
		return catalog.Product{}, f.err
	}
	for _, p := range f.products {
		if p.ID == productID {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []order.Order
	err    error
}

func (f *fakeOrders) InsertOrder(ctx context.Context, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, *o)
	return nil
}

func (f *fakeOrders) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == orderID {
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (f *fakeOrders) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []order.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

type memRemote struct {
	mu   sync.Mutex
	rows map[string]map[string]int
}

func (m *memRemote) ListByUser(ctx context.Context, userID string) ([]cart.RemoteLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []cart.RemoteLine{}
	for id, q := range m.rows[userID] {
		out = append(out, cart.RemoteLine{ProductID: id, Quantity: q})
	}
	return out, nil
}

func (m *memRemote) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rows[userID] == nil {
		m.rows[userID] = map[string]int{}
	}
	m.rows[userID][productID] = quantity
	return nil
}

func (m *memRemote) DeleteOne(ctx context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[userID], productID)
	return nil
}

func (m *memRemote) DeleteAllForUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, userID)
	return nil
}

var (
	now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	teaProduct = catalog.Product{
		ID: "p-tea", Name: "Green Tea", Category: "Food & Groceries", Price: "10.00",
		Status: catalog.StatusAvailable, Tags: []string{"drink"}, CreatedAt: now,
	}
	mugProduct = catalog.Product{
		ID: "p-mug", Name: "Mug", Category: "Home Supplies", Price: "5.5",
		Status: catalog.StatusAvailable, Tags: []string{}, CreatedAt: now.Add(-time.Hour),
	}
	sofaProduct = catalog.Product{
		ID: "p-sofa", Name: "Sofa", Category: "Furniture", Price: "450",
		Status: "Sold Out", Tags: []string{}, CreatedAt: now.Add(-2 * time.Hour),
	}
)

type server struct {
	router   http.Handler
	catalog  *fakeCatalog
	orders   *fakeOrders
	remote   *memRemote
	registry *storefront.Registry
}

func newServer(t *testing.T) *server {
	t.Helper()

	s := &server{
		catalog: &fakeCatalog{products: []catalog.Product{teaProduct, mugProduct, sofaProduct}},
		orders:  &fakeOrders{},
		remote:  &memRemote{rows: map[string]map[string]int{}},
	}
	s.registry = storefront.NewRegistry(storefront.Deps{
		Remote: s.remote,
		Orders: s.orders,
		Local:  localstore.NewMemory(),
	})
	t.Cleanup(s.registry.Close)

	s.router = NewRouter(NewHandler(s.catalog, s.orders, s.registry, nil), []string{"*"})
	return s
}

func (s *server) do(t *testing.T, method, path, clientID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if clientID != "" {
		req.Header.Set(HeaderClientID, clientID)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

var errBoom = errors.New("boom")
