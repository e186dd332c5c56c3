package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vswallet/vswallet/internal/fileutil"
)

const (
	// entryFileExtension is the extension for store entry files.
	entryFileExtension = ".json"

	// entryFilePermissions is the permission mode for entry files.
	entryFilePermissions = 0o600

	// storeDirPermissions is the permission mode for the store directory.
	storeDirPermissions = 0o700
)

// Compile-time interface check
var _ Store = (*FileStore)(nil)

// FileStore persists each key as a file under a base directory.
// Writes are atomic so a crash mid-write never corrupts an entry.
type FileStore struct {
	basePath string
}

// NewFileStore creates a file-backed store rooted at basePath.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{basePath: basePath}
}

// Get retrieves the value for key.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if err := ValidateKey(key); err != nil {
		return nil, false, err
	}

	// SECURITY: ValidateKey restricts key to [a-zA-Z0-9._-], no traversal possible
	//nolint:gosec // G304: Path constructed from validated key
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading store entry: %w", err)
	}

	return data, true, nil
}

// Set writes the value for key atomically.
func (s *FileStore) Set(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := os.MkdirAll(s.basePath, storeDirPermissions); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	if err := fileutil.WriteAtomic(s.entryPath(key), value, entryFilePermissions); err != nil {
		return fmt.Errorf("writing store entry: %w", err)
	}

	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FileStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing store entry: %w", err)
	}

	return nil
}

// Keys returns all stored keys with the given prefix, sorted.
func (s *FileStore) Keys(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing store directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, entryFileExtension) {
			continue
		}
		key := strings.TrimSuffix(name, entryFileExtension)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// entryPath returns the file path for a key.
func (s *FileStore) entryPath(key string) string {
	return filepath.Join(s.basePath, key+entryFileExtension)
}
