package index

import (
	"bytes"
	"time"

	"github.com/boltdb/bolt"
	"github.com/zeebo/errs"
)

// Class is the error class wrapping bolt failures into IndexError per
// the error handling design.
var Class = errs.Class("index")

var recordsBucket = []byte("records")

var defaultTimeout = 1 * time.Second

// BoltStore is a Store backed by a single bolt.DB file, following
// storj.io/storj/storage/boltdb's Client: one bucket, byte-wise key
// ordering from bolt's own B+tree, one transaction per operation.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bolt database at path and
// ensures the records bucket exists.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		return nil, Class.Wrap(err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(recordsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, Class.Wrap(err)
	}

	return &BoltStore{db: db}, nil
}

// Close implements Store.
func (s *BoltStore) Close() error {
	return Class.Wrap(s.db.Close())
}

// Get implements Store.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		v := b.Get(key)
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, Class.Wrap(err)
	}
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

// Put implements Store.
func (s *BoltStore) Put(key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Put(key, value)
	})
	return Class.Wrap(err)
}

// Delete implements Store.
func (s *BoltStore) Delete(key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucket).Delete(key)
	})
	return Class.Wrap(err)
}

// IterPrefix implements Store.
func (s *BoltStore) IterPrefix(prefix, start []byte, limit int, fn func(key, value []byte) bool) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()

		seek := prefix
		if len(start) > 0 && bytes.Compare(start, prefix) >= 0 {
			seek = start
		}

		count := 0
		for k, v := c.Seek(seek); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if len(start) > 0 && bytes.Compare(k, start) <= 0 {
				continue
			}
			if limit > 0 && count >= limit {
				break
			}
			count++
			if !fn(k, v) {
				break
			}
		}
		return nil
	})
	return Class.Wrap(err)
}

// IterAll implements Store.
func (s *BoltStore) IterAll(fn func(key, value []byte) bool) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(recordsBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fn(k, v) {
				break
			}
		}
		return nil
	})
	return Class.Wrap(err)
}
