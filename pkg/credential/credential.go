// Package credential persists the bearer token used to authorize writes
// against the remote document store.
package credential

import (
	"errors"
	"fmt"

	"github.com/cuemby/karatekonnect/pkg/storage"
)

// Key is the store key holding the raw token
const Key = "karatekonnect_token"

// ErrEmptyToken is returned when setting a blank token
var ErrEmptyToken = errors.New("token is empty")

// Store is a thin accessor over storage.Store for a single opaque token.
// The token content is never inspected.
type Store struct {
	kv storage.Store
}

// NewStore creates a credential store over kv
func NewStore(kv storage.Store) *Store {
	return &Store{kv: kv}
}

// Get returns the configured token. ok is false when no token is set.
func (s *Store) Get() (token string, ok bool, err error) {
	token, err = s.kv.Get(Key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read token: %w", err)
	}
	return token, token != "", nil
}

// Set stores token, replacing any previous one
func (s *Store) Set(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.kv.Set(Key, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Clear removes the token
func (s *Store) Clear() error {
	if err := s.kv.Remove(Key); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
