package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a product snapshot as it was in the cart at checkout.
type Item struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type Order struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	CustomerName string          `json:"customer_name"`
	Items        []Item          `json:"items"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Status       Status          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
