// Package store provides the durable key-value persistence capability the
// wallet host writes its registry and transaction history through. Values
// are opaque byte slices owned by the caller.
package store

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// keyRegex restricts keys to filesystem-safe characters.
var keyRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// ErrInvalidKey is returned when a key fails validation.
var ErrInvalidKey = walleterr.WithSuggestion(walleterr.ErrInvalidInput,
	"store keys must be 1-128 alphanumeric characters, dots, underscores, or hyphens")

// Store is the generic key-value persistence capability. Implementations
// must be safe for concurrent use and durable across restarts (the memory
// implementation intentionally is not, and exists for tests).
type Store interface {
	// Get retrieves the value for key. The second return reports existence.
	Get(key string) ([]byte, bool, error)

	// Set writes the value for key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Keys returns all stored keys with the given prefix, sorted.
	Keys(prefix string) ([]string, error)
}

// ValidateKey checks that a key is acceptable to every Store implementation.
func ValidateKey(key string) error {
	if !keyRegex.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// Compile-time interface check
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string][]byte)}
}

// Get retrieves the value for key.
func (s *MemStore) Get(key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, true, nil
}

// Set writes the value for key.
func (s *MemStore) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	cp := make([]byte, len(value))
	copy(cp, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cp
	return nil
}

// Delete removes key.
func (s *MemStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Keys returns all stored keys with the given prefix, sorted.
func (s *MemStore) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
