// Package keylock provides sharded per-key mutual exclusion, admitting
// unrelated keys to proceed concurrently while serializing mutations
// to the same key.
//
// Grounded on the single-map namedLock in couchbaselabs/cbfs
// (namedlock.go), generalized from one sync.Mutex guarding a shared
// map (every key contends on the same mutex just to check membership)
// to a fixed array of S independent shards, each an ordinary
// sync.Mutex keyed by H(key) mod S.
package keylock

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// Table is a fixed-size array of mutexes. Colliding keys (same shard)
// serialize; keys in different shards proceed in parallel. False
// sharing is acceptable when the shard count is large relative to the
// number of concurrently mutated keys.
type Table struct {
	shards []sync.Mutex
}

// New creates a Table with the given number of shards. A non-positive
// count falls back to 256 shards.
func New(shards int) *Table {
	if shards <= 0 {
		shards = 256
	}
	return &Table{shards: make([]sync.Mutex, shards)}
}

func (t *Table) shardFor(key string) *sync.Mutex {
	h := murmur3.Sum32([]byte(key))
	return &t.shards[h%uint32(len(t.shards))]
}

// Lock acquires the shard mutex for key, blocking until it is
// available.
func (t *Table) Lock(key string) {
	t.shardFor(key).Lock()
}

// Unlock releases the shard mutex for key. It must be called exactly
// once for each successful Lock, on every exit path.
func (t *Table) Unlock(key string) {
	t.shardFor(key).Unlock()
}

// WithLock runs fn while holding key's shard, releasing it on every
// return path including a panic propagating out of fn — the
// scoped-acquisition idiom spec.md requires for PUT/DELETE/UNLINK.
func (t *Table) WithLock(key string, fn func() error) error {
	m := t.shardFor(key)
	m.Lock()
	defer m.Unlock()
	return fn()
}
