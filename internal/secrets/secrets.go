// Package secrets provides the access-controlled secret store capability
// holding wallet mnemonic phrases, encrypted at rest with age.
package secrets

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"filippo.io/age"

	"github.com/vswallet/vswallet/internal/store"
	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// Store holds wallet secrets keyed by an opaque key. It is deliberately
// narrower than store.Store: no listing, values are strings, and file-backed
// implementations encrypt at rest.
type Store interface {
	// Get retrieves the secret for key. The second return reports existence.
	Get(key string) (string, bool, error)

	// Set writes the secret for key.
	Set(key, secret string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// Encrypt encrypts plaintext using age with a passphrase-based recipient.
func Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}

	if _, err = w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}

	if err = w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts ciphertext using age with a passphrase-based identity.
func Decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrDecryptionFailed, "opening secret")
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.ErrDecryptionFailed, "reading secret")
	}

	return plaintext, nil
}

// Compile-time interface checks
var (
	_ Store = (*MemStore)(nil)
	_ Store = (*EncryptedStore)(nil)
)

// MemStore is an in-memory secret store for tests.
type MemStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemStore creates an empty in-memory secret store.
func NewMemStore() *MemStore {
	return &MemStore{secrets: make(map[string]string)}
}

// Get retrieves the secret for key.
func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[key]
	return secret, ok, nil
}

// Set writes the secret for key.
func (s *MemStore) Set(key, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = secret
	return nil
}

// Delete removes key.
func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, key)
	return nil
}

// EncryptedStore wraps a store.Store, encrypting every value with age
// before it reaches the underlying storage.
type EncryptedStore struct {
	backing    store.Store
	passphrase string
}

// NewEncryptedStore creates a secret store that encrypts values with the
// given passphrase before writing them through to backing.
func NewEncryptedStore(backing store.Store, passphrase string) *EncryptedStore {
	return &EncryptedStore{backing: backing, passphrase: passphrase}
}

// Get retrieves and decrypts the secret for key.
func (s *EncryptedStore) Get(key string) (string, bool, error) {
	ciphertext, ok, err := s.backing.Get(key)
	if err != nil || !ok {
		return "", false, err
	}

	plaintext, err := Decrypt(ciphertext, s.passphrase)
	if err != nil {
		return "", false, err
	}

	return string(plaintext), true, nil
}

// Set encrypts and writes the secret for key.
func (s *EncryptedStore) Set(key, secret string) error {
	ciphertext, err := Encrypt([]byte(secret), s.passphrase)
	if err != nil {
		return err
	}
	return s.backing.Set(key, ciphertext)
}

// Delete removes key.
func (s *EncryptedStore) Delete(key string) error {
	return s.backing.Delete(key)
}
