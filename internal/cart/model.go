package cart

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/money"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const (
	// LocalCartKey is the local storage key the cart is mirrored under.
	LocalCartKey = "store_cart"
	// LocalCartOwnerKey holds the id of the user the mirrored cart belongs
	// to. It is absent for a guest cart.
	LocalCartOwnerKey = "store_cart_owner"

	// MaxQuantity is the largest quantity a line may hold; the remote
	// cart_items.quantity column is a 32-bit integer.
	MaxQuantity = math.MaxInt32
)

// Price is a catalog price kept verbatim. The catalog stores it as text, and
// older cached carts hold it as a JSON number, so both decode.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

func (p Price) Decimal() decimal.Decimal {
	return money.Parse(string(p))
}

// Product is the snapshot of a catalog product taken when it was added to
// the cart. Later catalog edits do not reach it.
type Product struct {
	ProductID string `json:"Product_id"`
	Name      string `json:"product_name"`
	ImageURL  string `json:"image_URL,omitempty"`
	Category  string `json:"category,omitempty"`
	Price     Price  `json:"Price"`
	Status    string `json:"status,omitempty"`
}

type Line struct {
	Product
	Quantity int `json:"quantity"`
}

func (l Line) Total() decimal.Decimal {
	return money.LineTotal(string(l.Price), l.Quantity)
}

// RemoteLine is a row of the remote cart table. Product is nil when the
// product no longer exists in the catalog.
type RemoteLine struct {
	ProductID string
	Quantity  int
	Product   *Product
}

type State int

const (
	StateGuest State = iota
	StateSyncing
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateSynced:
		return "synced"
	default:
		return "guest"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type CheckoutResult struct {
	Success bool
	Order   *order.Order
	Err     error
}
