// Package cartrepo holds the server-side carts, one per user.
package cartrepo

import "github.com/jrsteele09/motzkin-store/cart"

type Repo interface {
	List(userID string) ([]cart.Entry, error)
	// Add appends entry, assigning an id and timestamp when the client sent
	// none. An entry whose id is already in the cart replaces it in place.
	Add(userID string, entry cart.Entry) (cart.Entry, error)
	// Remove reports whether an entry was removed.
	Remove(userID, entryID string) (bool, error)
	Clear(userID string) error
}
