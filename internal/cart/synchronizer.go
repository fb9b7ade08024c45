package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

const (
	DefaultRemoteTimeout        = 5 * time.Second
	DefaultWriteBackConcurrency = 4

	writeQueueSize = 64
)

type Options struct {
	Remote  RemoteStore
	Orders  OrderStore
	Local   LocalStore
	Session SessionProvider

	// Publisher is optional. When set, every placed order is published
	// after the cart has been cleared.
	Publisher OrderPublisher
	Logger    *zap.Logger

	RemoteTimeout        time.Duration
	WriteBackConcurrency int
	Now                  func() time.Time
}

// Synchronizer owns one client's cart. Mutations apply to memory first and
// are then mirrored to local storage and, for a signed-in user, queued for
// the remote store. Signing in merges the remote cart with the local one.
type Synchronizer struct {
	remote    RemoteStore
	orders    OrderStore
	local     LocalStore
	publisher OrderPublisher
	logger    *zap.Logger

	timeout        time.Duration
	writeBackLimit int
	now            func() time.Time

	// held for writing while a session change or a checkout is applied;
	// other mutations hold it for reading
	mergeMu sync.RWMutex

	mu         sync.Mutex
	lines      []Line
	drawerOpen bool
	state      State
	user       *session.User
	closed     bool

	writes *writeQueue
}

func NewSynchronizer(opts Options) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RemoteTimeout
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	limit := opts.WriteBackConcurrency
	if limit <= 0 {
		limit = DefaultWriteBackConcurrency
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Synchronizer{
		remote:         opts.Remote,
		orders:         opts.Orders,
		local:          opts.Local,
		publisher:      opts.Publisher,
		logger:         logger.With(zap.String("component", "cart")),
		timeout:        timeout,
		writeBackLimit: limit,
		now:            now,
	}
	s.writes = newWriteQueue(writeQueueSize, s.runWrite)

	current := opts.Session.Current()
	if current == nil {
		s.lines = s.readLocal("")
	}
	opts.Session.Subscribe(s.HandleSessionChange)
	if current != nil {
		s.HandleSessionChange(context.Background(), current)
	}
	return s
}

// AddToCart adds quantity units of p, opening the drawer. An existing line
// keeps its first snapshot and only grows.
func (s *Synchronizer) AddToCart(p Product, quantity int) error {
	if p.ProductID == "" {
		return ErrInvalidProduct
	}
	if quantity < 1 || quantity > MaxQuantity {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	s.mergeMu.RLock()
	defer s.mergeMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	total := quantity
	if i := s.indexLocked(p.ProductID); i >= 0 {
		if s.lines[i].Quantity > MaxQuantity-quantity {
			return fmt.Errorf("%w: %d more than the %d in the cart", ErrInvalidQuantity, quantity, s.lines[i].Quantity)
		}
		s.lines[i].Quantity += quantity
		total = s.lines[i].Quantity
	} else {
		s.lines = append(s.lines, Line{Product: p, Quantity: quantity})
	}
	s.drawerOpen = true
	s.mirrorLocked()
	s.upsertLocked(p.ProductID, total)
	return nil
}

func (s *Synchronizer) RemoveFromCart(productID string) {
	s.mergeMu.RLock()
	defer s.mergeMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(productID)
}

// UpdateQuantity sets the quantity of an existing line. Anything below one
// removes the line. Unknown products are ignored.
func (s *Synchronizer) UpdateQuantity(productID string, quantity int) error {
	if quantity > MaxQuantity {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	s.mergeMu.RLock()
	defer s.mergeMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity < 1 {
		s.removeLocked(productID)
		return nil
	}
	i := s.indexLocked(productID)
	if i < 0 {
		return nil
	}
	s.lines[i].Quantity = quantity
	s.mirrorLocked()
	s.upsertLocked(productID, quantity)
	return nil
}

func (s *Synchronizer) ClearCart() {
	s.mergeMu.RLock()
	defer s.mergeMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
}

// Checkout places an order for the signed-in user. The order insert is the
// only remote call whose failure reaches the caller; on failure the cart is
// left as it was. Mutations wait until checkout is done, so nothing added
// after the order was built is cleared with it.
func (s *Synchronizer) Checkout(ctx context.Context, customerName string) CheckoutResult {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	s.mu.Lock()
	user := s.user
	lines := slices.Clone(s.lines)
	s.mu.Unlock()

	if user == nil {
		return CheckoutResult{Err: ErrNotAuthenticated}
	}
	if len(lines) == 0 {
		return CheckoutResult{Err: ErrEmptyCart}
	}

	o := s.buildOrder(*user, customerName, lines)

	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.orders.InsertOrder(insertCtx, o); err != nil {
		err = fmt.Errorf("%w: insert order: %w", ErrRemoteUnavailable, err)
		s.logger.Warn("checkout failed", zap.String("user_id", user.ID), zap.Error(err))
		return CheckoutResult{Err: err}
	}

	s.mu.Lock()
	s.clearLocked()
	if s.publisher != nil {
		s.enqueueLocked(remoteWrite{
			op:     "publish_order_placed",
			userID: user.ID,
			parent: ctx,
			do: func(ctx context.Context) error {
				return s.publisher.PublishOrderPlaced(ctx, o)
			},
		})
	}
	s.mu.Unlock()

	s.logger.Info("order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", user.ID),
		zap.Int("items", len(o.Items)),
		zap.String("total", o.TotalPrice.String()),
	)
	return CheckoutResult{Success: true, Order: o}
}

// HandleSessionChange applies a session transition: nil signs out, a new
// user triggers the merge. It is registered with the session provider and
// returns once the cart reflects the new session.
func (s *Synchronizer) HandleSessionChange(ctx context.Context, u *session.User) {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	current := s.user
	s.mu.Unlock()

	switch {
	case u == nil:
		if current != nil {
			s.signOut()
		}
	case current != nil && current.ID == u.ID:
	default:
		if current != nil {
			s.signOut()
		}
		// a client that goes away mid sign-in must not abort the merge
		s.merge(context.WithoutCancel(ctx), *u)
	}
}

func (s *Synchronizer) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// ItemCount is the total number of units in the cart.
func (s *Synchronizer) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *Synchronizer) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotal(s.lines)
}

func (s *Synchronizer) DrawerOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawerOpen
}

func (s *Synchronizer) SetDrawerOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawerOpen = open
}

func (s *Synchronizer) ToggleDrawer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawerOpen = !s.drawerOpen
	return s.drawerOpen
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer) Syncing() bool {
	return s.State() == StateSyncing
}

// User returns the user the cart currently belongs to, or nil for a guest.
func (s *Synchronizer) User() *session.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Flush blocks until every remote write queued before the call has run.
func (s *Synchronizer) Flush(ctx context.Context) error {
	done := make(chan struct{})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.writes.push(remoteWrite{done: done})
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting remote writes, runs the ones already queued and
// stops the worker. Later session changes are ignored. A signed-in user's
// cart is removed from local storage; the next synchronizer on this client
// starts as a guest.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	signedIn := s.user != nil
	s.mu.Unlock()

	s.writes.close()
	if signedIn {
		s.dropLocal()
	}
}

func (s *Synchronizer) signOut() {
	s.mu.Lock()
	userID := s.user.ID
	s.user = nil
	s.lines = nil
	s.state = StateGuest
	s.mu.Unlock()

	s.dropLocal()
	s.logger.Info("signed out", zap.String("user_id", userID))
}

func (s *Synchronizer) merge(ctx context.Context, u session.User) {
	s.mu.Lock()
	s.user = &u
	s.state = StateSyncing
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = StateSynced
		s.mu.Unlock()
	}()

	listCtx, cancel := context.WithTimeout(ctx, s.timeout)
	remote, err := s.remote.ListByUser(listCtx, u.ID)
	cancel()
	if err != nil {
		s.logRemoteFailure("list", u.ID, "", err)
		return
	}

	merged := Merge(remote, s.readLocal(u.ID))

	s.mu.Lock()
	s.lines = merged
	s.mirrorLocked()
	s.mu.Unlock()

	s.writeBack(ctx, u.ID, merged)
	s.logger.Info("cart synced",
		zap.String("user_id", u.ID),
		zap.Int("remote_lines", len(remote)),
		zap.Int("lines", len(merged)),
	)
}

// writeBack upserts every merged line. Failures are logged per line and do
// not stop the others.
func (s *Synchronizer) writeBack(ctx context.Context, userID string, lines []Line) {
	var g errgroup.Group
	g.SetLimit(s.writeBackLimit)

	for _, l := range lines {
		l := l
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := s.remote.Upsert(ctx, userID, l.ProductID, l.Quantity); err != nil {
				s.logRemoteFailure("upsert", userID, l.ProductID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// readLocal loads the mirrored cart if it is a guest cart or belongs to
// userID. A cart mirrored for anyone else is dropped unread.
func (s *Synchronizer) readLocal(userID string) []Line {
	owner, _, err := s.local.Get(LocalCartOwnerKey)
	if err != nil {
		s.logger.Warn("read local cart owner", zap.Error(err))
		return nil
	}
	if owner != "" && owner != userID {
		s.logger.Info("discarding local cart of another user")
		s.dropLocal()
		return nil
	}

	raw, ok, err := s.local.Get(LocalCartKey)
	if err != nil {
		s.logger.Warn("read local cart", zap.Error(err))
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		s.logger.Warn("discarding local cart", zap.Error(fmt.Errorf("%w: %w", ErrMalformedLocalCache, err)))
		s.dropLocal()
		return nil
	}
	return normalize(lines)
}

func (s *Synchronizer) dropLocal() {
	for _, key := range []string{LocalCartKey, LocalCartOwnerKey} {
		if err := s.local.Remove(key); err != nil {
			s.logger.Warn("clear local cart", zap.String("key", key), zap.Error(err))
		}
	}
}

// mirrorLocked writes the cart to local storage while it is a guest cart or
// non-empty, tagged with the signed-in user. An emptied signed-in cart
// removes the keys instead so a stale copy is never hydrated later.
func (s *Synchronizer) mirrorLocked() {
	if s.closed && s.user != nil {
		return
	}
	if s.user != nil && len(s.lines) == 0 {
		s.dropLocal()
		return
	}

	var err error
	if s.user != nil {
		err = s.local.Set(LocalCartOwnerKey, s.user.ID)
	} else {
		err = s.local.Remove(LocalCartOwnerKey)
	}
	if err != nil {
		// an untagged copy could be hydrated by the wrong session
		s.logger.Warn("write local cart owner", zap.Error(err))
		return
	}

	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		s.logger.Error("encode local cart", zap.Error(err))
		return
	}
	if err := s.local.Set(LocalCartKey, string(b)); err != nil {
		s.logger.Warn("write local cart", zap.Error(err))
	}
}

func (s *Synchronizer) indexLocked(productID string) int {
	return slices.IndexFunc(s.lines, func(l Line) bool { return l.ProductID == productID })
}

func (s *Synchronizer) removeLocked(productID string) {
	i := s.indexLocked(productID)
	if i < 0 {
		return
	}
	s.lines = slices.Delete(s.lines, i, i+1)
	s.mirrorLocked()

	if s.user != nil {
		userID := s.user.ID
		s.enqueueLocked(remoteWrite{
			op:        "delete",
			userID:    userID,
			productID: productID,
			do: func(ctx context.Context) error {
				return s.remote.DeleteOne(ctx, userID, productID)
			},
		})
	}
}

func (s *Synchronizer) clearLocked() {
	s.lines = nil
	s.mirrorLocked()

	if s.user != nil {
		userID := s.user.ID
		s.enqueueLocked(remoteWrite{
			op:     "delete_all",
			userID: userID,
			do: func(ctx context.Context) error {
				return s.remote.DeleteAllForUser(ctx, userID)
			},
		})
	}
}

func (s *Synchronizer) upsertLocked(productID string, quantity int) {
	if s.user == nil {
		return
	}
	userID := s.user.ID
	s.enqueueLocked(remoteWrite{
		op:        "upsert",
		userID:    userID,
		productID: productID,
		do: func(ctx context.Context) error {
			return s.remote.Upsert(ctx, userID, productID, quantity)
		},
	})
}

func (s *Synchronizer) enqueueLocked(w remoteWrite) {
	if s.closed {
		s.logger.Debug("dropping remote write after close", zap.String("op", w.op))
		return
	}
	s.writes.push(w)
}

func (s *Synchronizer) runWrite(w remoteWrite) {
	parent := w.parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.timeout)
	defer cancel()

	if err := w.do(ctx); err != nil {
		s.logRemoteFailure(w.op, w.userID, w.productID, err)
	}
}

func (s *Synchronizer) logRemoteFailure(op, userID, productID string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.Error(fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)),
	}
	if productID != "" {
		fields = append(fields, zap.String("product_id", productID))
	}
	s.logger.Warn("remote cart call failed", fields...)
}

func (s *Synchronizer) buildOrder(u session.User, customerName string, lines []Line) *order.Order {
	name := strings.TrimSpace(customerName)
	if name == "" {
		name = u.Email
	}

	items := make([]order.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, order.Item{
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Price:       l.Price.Decimal(),
			Quantity:    l.Quantity,
		})
	}

	return &order.Order{
		ID:           uuid.NewString(),
		UserID:       u.ID,
		CustomerName: name,
		Items:        items,
		TotalPrice:   subtotal(lines),
		Status:       order.StatusPending,
		CreatedAt:    s.now().UTC(),
	}
}

func subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}
