// Package storage provides the flat key/value scopes the key lifecycle
// persists into. Implementations are last-writer-wins and safe for
// concurrent use.
package storage

import "errors"

var ErrNotFound = errors.New("storage: key not found")

// Store is one named storage scope.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Scan returns the keys starting with prefix, sorted.
	Scan(prefix string) ([]string, error)
	Close() error
}
