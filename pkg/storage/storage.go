// Package storage provides the durable key/value primitive backing the
// session token and the version-skew flag. Stores are last-write-wins and
// offer no cross-key transactions.
package storage

import (
	"fmt"

	"github.com/denysvitali/ipos-browser-go/pkg/config"
)

// Well-known keys
const (
	KeyToken        = "token"
	KeyNewlyUpdated = "newlyUpdated"
)

// Store is a durable string key/value store
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Open returns the store selected by cfg
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.Path)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close closes s if it holds resources
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
