package cart

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

type fakeRemote struct {
	mu       sync.Mutex
	rows     map[string]map[string]int
	products map[string]Product
	calls    []string

	listErr   error
	upsertErr error

	// when set, ListByUser signals listStarted and waits for listRelease
	listStarted chan struct{}
	listRelease chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		rows:     make(map[string]map[string]int),
		products: make(map[string]Product),
	}
}

func (f *fakeRemote) seed(userID string, p Product, quantity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[string]int)
	}
	f.rows[userID][p.ProductID] = quantity
	f.products[p.ProductID] = p
}

func (f *fakeRemote) ListByUser(ctx context.Context, userID string) ([]RemoteLine, error) {
	if f.listStarted != nil {
		close(f.listStarted)
		<-f.listRelease
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list "+userID)
	if f.listErr != nil {
		return nil, f.listErr
	}

	ids := make([]string, 0, len(f.rows[userID]))
	for id := range f.rows[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([]RemoteLine, 0, len(ids))
	for _, id := range ids {
		l := RemoteLine{ProductID: id, Quantity: f.rows[userID][id]}
		if p, ok := f.products[id]; ok {
			l.Product = &p
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func (f *fakeRemote) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("upsert %s %s %d", userID, productID, quantity))
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if f.rows[userID] == nil {
		f.rows[userID] = make(map[string]int)
	}
	f.rows[userID][productID] = quantity
	return nil
}

func (f *fakeRemote) DeleteOne(ctx context.Context, userID, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("delete %s %s", userID, productID))
	delete(f.rows[userID], productID)
	return nil
}

func (f *fakeRemote) DeleteAllForUser(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete_all "+userID)
	delete(f.rows, userID)
	return nil
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) Quantities(userID string) map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.rows[userID]))
	for k, v := range f.rows[userID] {
		out[k] = v
	}
	return out
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []*order.Order
	err    error

	// when set, InsertOrder signals insertStarted and waits for insertRelease
	insertStarted chan struct{}
	insertRelease chan struct{}
}

func (f *fakeOrders) InsertOrder(ctx context.Context, o *order.Order) error {
	if f.insertStarted != nil {
		close(f.insertStarted)
		<-f.insertRelease
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.orders = append(f.orders, o)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
}

func (f *fakePublisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, o.ID)
	return nil
}

func (f *fakePublisher) Published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.published...)
}
