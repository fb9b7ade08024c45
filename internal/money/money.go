package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse reads a price as entered in the catalog. Anything that is not a
// number counts as zero.
func Parse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LineTotal returns price * quantity.
func LineTotal(price string, quantity int) decimal.Decimal {
	return Parse(price).Mul(decimal.NewFromInt(int64(quantity)))
}
