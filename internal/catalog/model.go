package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/money"
)

const StatusAvailable = "Available"

// Product is a catalog row. Price is kept as entered; see PriceValue.
type Product struct {
	ID          string    `json:"Product_id"`
	Name        string    `json:"product_name"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_URL,omitempty"`
	Category    string    `json:"category"`
	Price       string    `json:"Price"`
	Status      string    `json:"status"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// PriceValue is the numeric price, zero when the stored text is not a number.
func (p Product) PriceValue() decimal.Decimal {
	return money.Parse(p.Price)
}

func (p Product) Available() bool {
	return p.Status == StatusAvailable
}
