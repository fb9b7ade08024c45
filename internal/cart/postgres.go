package cart

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresStore is the remote cart table, one row per (user, product).
type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]RemoteLine, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ci.product_id, ci.quantity, p.product_id IS NOT NULL,
		       COALESCE(p.name, ''), COALESCE(p.image_url, ''), COALESCE(p.category, ''),
		       COALESCE(p.price, ''), COALESCE(p.status, '')
		FROM cart_items ci
		LEFT JOIN products p ON p.product_id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.product_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart_items: %w", err)
	}
	defer rows.Close()

	lines := []RemoteLine{}
	for rows.Next() {
		var (
			l     RemoteLine
			found bool
			p     Product
			price string
		)
		if err := rows.Scan(&l.ProductID, &l.Quantity, &found, &p.Name, &p.ImageURL, &p.Category, &price, &p.Status); err != nil {
			return nil, fmt.Errorf("scan cart_item: %w", err)
		}
		if found {
			p.ProductID = l.ProductID
			p.Price = Price(price)
			l.Product = &p
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return lines, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, product_id) DO UPDATE SET quantity=EXCLUDED.quantity, updated_at=now()
	`, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("upsert cart_item: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOne(ctx context.Context, userID, productID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1 AND product_id=$2`, userID, productID); err != nil {
		return fmt.Errorf("delete cart_item: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAllForUser(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete cart_items: %w", err)
	}
	return nil
}
