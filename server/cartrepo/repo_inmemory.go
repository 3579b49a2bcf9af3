package cartrepo

import (
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/motzkin-store/cart"
	"github.com/jrsteele09/motzkin-store/catalog"
	"github.com/jrsteele09/motzkin-store/internal/utils"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	carts   map[string][]cart.Entry // userID -> entries in insertion order
	ids     *utils.IDGenerator
	nowTime func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory cart repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		carts:   make(map[string][]cart.Entry),
		ids:     utils.NewIDGenerator(2),
		nowTime: time.Now,
	}
}

func (r *InMemoryRepo) List(userID string) ([]cart.Entry, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.carts[userID]
	out := make([]cart.Entry, len(entries))
	for i, e := range entries {
		out[i] = copyEntry(e)
	}
	return out, nil
}

func (r *InMemoryRepo) Add(userID string, entry cart.Entry) (cart.Entry, error) {
	if userID == "" {
		return cart.Entry{}, errors.New("userID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		entry.ID = "cart_" + r.ids.Next()
	}
	if entry.Timestamp == 0 {
		entry.Timestamp = r.nowTime().UnixMilli()
	}
	entry = copyEntry(entry)

	entries := r.carts[userID]
	for i, e := range entries {
		if e.ID == entry.ID {
			entries[i] = entry
			return copyEntry(entry), nil
		}
	}
	r.carts[userID] = append(entries, entry)
	return copyEntry(entry), nil
}

func (r *InMemoryRepo) Remove(userID, entryID string) (bool, error) {
	if userID == "" || entryID == "" {
		return false, errors.New("userID and entryID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.carts[userID]
	for i, e := range entries {
		if e.ID == entryID {
			r.carts[userID] = append(entries[:i:i], entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryRepo) Clear(userID string) error {
	if userID == "" {
		return errors.New("userID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, userID)
	return nil
}

func copyEntry(e cart.Entry) cart.Entry {
	e.Items = catalog.CloneLines(e.Items)
	return e
}
