package cart

import "errors"

var (
	ErrRemoteUnavailable   = errors.New("remote store unavailable")
	ErrNotAuthenticated    = errors.New("not authenticated")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrMalformedLocalCache = errors.New("malformed local cart cache")
	ErrInvalidQuantity     = errors.New("quantity must be between 1 and 2147483647")
	ErrInvalidProduct      = errors.New("product id is required")
)
