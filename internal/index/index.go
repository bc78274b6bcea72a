// Package index provides the durable ordered key to record-bytes map
// backing the master's metadata state machine.
package index

import "errors"

// ErrNotFound is returned by Get when key has no entry.
var ErrNotFound = errors.New("index: not found")

// Store is the abstract durable ordered map contract the handler
// depends on. A concrete implementation (e.g. bolt-backed) provides
// atomic single-key writes and prefix iteration; any operation may
// fail with an error the caller wraps as IndexError.
type Store interface {
	// Get returns the raw record bytes stored under key, or
	// ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Put atomically overwrites the value stored under key.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// IterPrefix calls fn for every (key, value) under prefix, in
	// byte-wise key order, strictly after start (start may be nil or
	// empty to mean "from the beginning of the prefix"), stopping
	// after limit entries (limit <= 0 means unbounded) or when fn
	// returns false.
	IterPrefix(prefix, start []byte, limit int, fn func(key, value []byte) bool) error

	// IterAll calls fn for every (key, value) in the store, in
	// byte-wise key order, stopping when fn returns false.
	IterAll(fn func(key, value []byte) bool) error

	// Close releases the store's resources.
	Close() error
}
