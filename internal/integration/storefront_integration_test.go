//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/contracts"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/localstore"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/storefront"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/testutil"
)

const userID = "user-1"

func TestCartFollowsUserAcrossClients(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	dsn := testutil.StartPostgres(t)
	conn, _ := testutil.StartRabbitMQ(t)

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	database, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	defer database.Close()

	seedProducts(ctx, t, database)

	publisher, err := events.NewPublisher(conn, events.NewOrderSequenceStore(database, nil), zap.NewNop())
	require.NoError(t, err)
	defer publisher.Close()

	deliveries := consumeOrderPlaced(t, conn)

	orders := order.NewRepository(database)
	registry := storefront.NewRegistry(storefront.Deps{
		Remote:    cart.NewPostgresStore(pool),
		Orders:    orders,
		Local:     localstore.NewMemory(),
		Publisher: publisher,
	})
	defer registry.Close()

	handler := httpapi.NewHandler(catalog.NewPostgresRepository(pool), orders, registry, nil)
	srv := httptest.NewServer(httpapi.NewRouter(handler, []string{"*"}))
	defer srv.Close()

	// guest cart on the first device is pushed to the server on sign-in
	call(t, srv.URL, http.MethodPost, "/api/cart/items", "laptop", `{"productId":"p-tea","quantity":2}`, http.StatusOK)
	call(t, srv.URL, http.MethodPost, "/api/session/signin", "laptop", `{"userId":"user-1","email":"ada@example.com"}`, http.StatusOK)

	require.Eventually(t, func() bool {
		return remoteQuantity(ctx, t, database, "p-tea") == 2
	}, 10*time.Second, 100*time.Millisecond)

	// second device merges its own guest cart with the server copy
	call(t, srv.URL, http.MethodPost, "/api/cart/items", "phone", `{"productId":"p-mug","quantity":1}`, http.StatusOK)
	body := call(t, srv.URL, http.MethodPost, "/api/session/signin", "phone", `{"userId":"user-1","email":"ada@example.com"}`, http.StatusOK)

	var sess struct {
		Cart struct {
			ItemCount int    `json:"itemCount"`
			State     string `json:"state"`
		} `json:"cart"`
	}
	require.NoError(t, json.Unmarshal(body, &sess))
	require.Equal(t, 3, sess.Cart.ItemCount)
	require.Equal(t, "synced", sess.Cart.State)

	require.Eventually(t, func() bool {
		return remoteQuantity(ctx, t, database, "p-mug") == 1
	}, 10*time.Second, 100*time.Millisecond)

	body = call(t, srv.URL, http.MethodPost, "/api/cart/checkout", "phone", `{"customerName":"Ada"}`, http.StatusCreated)

	var placed order.Order
	require.NoError(t, json.Unmarshal(body, &placed))
	require.Len(t, placed.Items, 2)
	require.Equal(t, "25.5", placed.TotalPrice.String())

	stored, err := orders.GetByID(ctx, placed.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", stored.CustomerName)

	require.Eventually(t, func() bool {
		return remoteQuantity(ctx, t, database, "p-tea") == 0 &&
			remoteQuantity(ctx, t, database, "p-mug") == 0
	}, 10*time.Second, 100*time.Millisecond)

	select {
	case d := <-deliveries:
		var env contracts.EventEnvelope
		require.NoError(t, json.Unmarshal(d.Body, &env))
		require.Equal(t, contracts.OrderPlacedEventName, env.EventName)
		require.Equal(t, userID, env.PartitionKey)
		require.Equal(t, int64(1), env.Sequence)
		require.Equal(t, placed.ID, env.Payload.OrderID)
		require.Len(t, env.Payload.Items, 2)
	case <-ctx.Done():
		t.Fatal("timed out waiting for order placed event")
	}
}

func seedProducts(ctx context.Context, t *testing.T, database *sql.DB) {
	t.Helper()

	_, err := database.ExecContext(ctx, `
		INSERT INTO products (product_id, name, category, price, status, tags)
		VALUES
			('p-tea', 'Green Tea', 'Food & Groceries', '10.00', 'Available', '{drink}'),
			('p-mug', 'Mug', 'Home Supplies', '5.50', 'Available', '{}')`)
	require.NoError(t, err)
}

func remoteQuantity(ctx context.Context, t *testing.T, database *sql.DB, productID string) int {
	t.Helper()

	var qty int
	err := database.QueryRowContext(ctx,
		`SELECT quantity FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID,
	).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0
	}
	require.NoError(t, err)
	return qty
}

func consumeOrderPlaced(t *testing.T, conn *amqp.Connection) <-chan amqp.Delivery {
	t.Helper()

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.OrderPlacedRoutingKey, events.EventsExchange, false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)
	return deliveries
}

func call(t *testing.T, baseURL, method, path, clientID, body string, wantStatus int) []byte {
	t.Helper()

	req, err := http.NewRequest(method, baseURL+path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpapi.HeaderClientID, clientID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, string(out))
	return out
}
