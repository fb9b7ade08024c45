// Package localstore persists small string values for a client that is not
// signed in. It plays the role browser local storage plays for a web
// storefront.
package localstore

// Store is a synchronous key/value store. Get reports false for a missing key.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
