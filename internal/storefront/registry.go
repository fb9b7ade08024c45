// Package storefront keeps one session and one cart per browser client.
package storefront

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/localstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type Client struct {
	ID      string
	Session *session.Provider
	Cart    *cart.Synchronizer

	lastSeen time.Time
}

type Deps struct {
	Remote cart.RemoteStore
	Orders cart.OrderStore
	// Local is shared by every client; each one sees it through its own scope.
	Local     localstore.Store
	Publisher cart.OrderPublisher
	Logger    *zap.Logger

	RemoteTimeout time.Duration
	// MaxClients caps live clients; zero means DefaultMaxClients.
	MaxClients int
	Now        func() time.Time
}

const DefaultMaxClients = 10000

type Registry struct {
	deps       Deps
	logger     *zap.Logger
	now        func() time.Time
	maxClients int

	mu      sync.Mutex
	clients map[string]*Client
}

func NewRegistry(deps Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxClients := deps.MaxClients
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &Registry{
		deps:       deps,
		logger:     logger,
		now:        now,
		maxClients: maxClients,
		clients:    make(map[string]*Client),
	}
}

// Client returns the client with the given id, creating it on first use. A
// new client starts as a guest with whatever cart its local scope holds.
// Creating a client beyond the cap evicts the least recently seen one.
func (r *Registry) Client(id string) *Client {
	c, evicted := r.client(id)
	if evicted != nil {
		evicted.Cart.Close()
		r.logger.Info("evicted least recently seen client", zap.String("client_id", evicted.ID))
	}
	return c
}

func (r *Registry) client(id string) (c, evicted *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.clients[id]; ok {
		existing.lastSeen = r.now()
		return existing, nil
	}

	if len(r.clients) >= r.maxClients {
		evicted = r.oldestLocked()
		delete(r.clients, evicted.ID)
	}

	provider := session.NewProvider()
	c = &Client{
		ID:      id,
		Session: provider,
		Cart: cart.NewSynchronizer(cart.Options{
			Remote:        r.deps.Remote,
			Orders:        r.deps.Orders,
			Local:         localstore.NewScoped(r.deps.Local, id),
			Session:       provider,
			Publisher:     r.deps.Publisher,
			Logger:        r.logger.With(zap.String("client_id", id)),
			RemoteTimeout: r.deps.RemoteTimeout,
		}),
		lastSeen: r.now(),
	}
	r.clients[id] = c
	r.logger.Debug("client created", zap.String("client_id", id))
	return c, evicted
}

func (r *Registry) oldestLocked() *Client {
	var oldest *Client
	for _, c := range r.clients {
		if oldest == nil || c.lastSeen.Before(oldest.lastSeen) {
			oldest = c
		}
	}
	return oldest
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep drops clients idle for longer than ttl and returns how many went.
// Their guest carts stay in local storage; carts of signed-in users do not.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var idle []*Client
	for id, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			idle = append(idle, c)
			delete(r.clients, id)
		}
	}
	r.mu.Unlock()

	for _, c := range idle {
		c.Cart.Close()
	}
	if len(idle) > 0 {
		r.logger.Info("evicted idle clients", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Close drops every client, letting queued remote writes finish.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range clients {
		c.Cart.Close()
	}
}

// RunSweeper calls Sweep every ttl/2 until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ttl)
		}
	}
}
