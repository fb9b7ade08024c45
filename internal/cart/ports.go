package cart

import (
	"context"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

// RemoteStore is the per-user cart table. Upsert writes an absolute quantity.
type RemoteStore interface {
	ListByUser(ctx context.Context, userID string) ([]RemoteLine, error)
	Upsert(ctx context.Context, userID, productID string, quantity int) error
	DeleteOne(ctx context.Context, userID, productID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}

type OrderStore interface {
	InsertOrder(ctx context.Context, o *order.Order) error
}

type LocalStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

type SessionProvider interface {
	Current() *session.User
	Subscribe(fn session.Listener)
}

type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, o *order.Order) error
}
