package config

import "strings"

// Record store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

type StorageConfig interface {
	GetIdentityStore() string
	GetCartStore() string
	GetDatabaseURL() string
	GetBrowsingSessionID() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetIdentityStore() string {
	return strings.ToLower(GetEnv("IDENTITY_STORE", StoreFile))
}

func (Storage) GetCartStore() string {
	return strings.ToLower(GetEnv("CART_STORE", StoreFile))
}

func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

// GetBrowsingSessionID scopes the cart record. Changing it starts a new cart.
func (Storage) GetBrowsingSessionID() string {
	return GetEnv("BROWSING_SESSION_ID", "default")
}
