package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when the key has no value
	ErrNotFound = errors.New("key not found")

	// ErrInUse is returned by Open when another process holds the store
	ErrInUse = errors.New("local store in use by another process")
)

// Store is the process-local persistent key/value capability shared by the
// cache and the credential store. Operations are synchronous.
type Store interface {
	// Get returns the value for key, or ErrNotFound
	Get(key string) (string, error)
	// Set overwrites the value for key
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
	// Close releases the underlying medium
	Close() error
}

// Backend names accepted by Open
const (
	BackendBolt   = "bolt"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Open creates the store for the named backend rooted at dataDir
func Open(backend, dataDir string) (Store, error) {
	switch backend {
	case BackendBolt, "":
		return NewBoltStore(dataDir)
	case BackendBadger:
		return NewBadgerStore(dataDir)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
