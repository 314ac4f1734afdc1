// Package storage provides the durable key-value backends used to persist
// download history between runs.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
)

// ErrNotFound is returned by Get when the key has never been written
var ErrNotFound = errors.New("key not found")

// UpdateFunc receives the stored value (nil when the key is absent) and
// returns the value to write back
type UpdateFunc func(current []byte) ([]byte, error)

// KV is a minimal durable key-value store
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	// Update reads and rewrites key atomically with respect to every other
	// writer of the same store, including other processes. An error from
	// fn aborts the update.
	Update(key string, fn UpdateFunc) error
	Close() error
}

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

// Open creates the store for the given backend rooted at dataDir
func Open(backend, dataDir string) (KV, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dataDir, "store"))
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, "monochrome.db"))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
