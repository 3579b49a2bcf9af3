// Package storage provides the durable key/value records the client keeps
// between runs: the cached identity, the cart and the session cookies.
package storage

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/motzkin-store/internal/errors"
)

// ErrNotFound is returned by Get when no record exists for a key.
var ErrNotFound = apperrors.ErrNotFound

// Store persists opaque records by key. Put and Delete complete before they
// return; nothing is buffered.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes a record; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("record key is required")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("record key %q contains a path separator", key)
	}
	return nil
}
