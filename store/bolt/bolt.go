// Package bolt provides a CommitKVStore backed by a bbolt file, for
// embedders that want the ledger state to survive restarts. All writes
// go through cache-wraps and are applied in a single bbolt transaction
// on Write.
package bolt

import (
	"bytes"

	bolt "go.etcd.io/bbolt"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/store"
)

const fileMode = 0600

// stateBucket is the single namespace all ledger state lives under.
var stateBucket = []byte("state")

// BoltStore is a CommitKVStore implementation based on bolt DB.
type BoltStore struct {
	db *bolt.DB
}

var _ feemill.CommitKVStore = (*BoltStore)(nil)

// Open opens the bolt database file, creating it when missing.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, fileMode, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "open %q: %s", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrapf(errors.ErrDatabase, "create bucket: %s", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns nil if the key does not exist.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(stateBucket).Get(key)
		if v != nil {
			value = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "get: %s", err)
	}
	return value, nil
}

// Has checks for existence of a key.
func (s *BoltStore) Has(key []byte) (bool, error) {
	raw, err := s.Get(key)
	return raw != nil, err
}

// Set writes the key directly, outside of any cache-wrap.
func (s *BoltStore) Set(key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put(key, value)
	})
	return errors.Wrap(err, "bolt set")
}

// Delete removes the key directly, outside of any cache-wrap.
func (s *BoltStore) Delete(key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Delete(key)
	})
	return errors.Wrap(err, "bolt delete")
}

// Iterator over a domain of keys in ascending order. The range is
// materialized within a read transaction, so the iterator stays valid
// after writes.
func (s *BoltStore) Iterator(start, end []byte) (feemill.Iterator, error) {
	return s.rangeModels(start, end, false)
}

// ReverseIterator over a domain of keys in descending order.
func (s *BoltStore) ReverseIterator(start, end []byte) (feemill.Iterator, error) {
	return s.rangeModels(start, end, true)
}

func (s *BoltStore) rangeModels(start, end []byte, reverse bool) (feemill.Iterator, error) {
	var models []store.Model
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(stateBucket).Cursor()
		var k, v []byte
		if start == nil {
			k, v = c.First()
		} else {
			k, v = c.Seek(start)
		}
		for ; k != nil; k, v = c.Next() {
			if end != nil && bytes.Compare(k, end) >= 0 {
				break
			}
			models = append(models, store.Model{
				Key:   append([]byte{}, k...),
				Value: append([]byte{}, v...),
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrDatabase, "iterate: %s", err)
	}
	if reverse {
		for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
			models[i], models[j] = models[j], models[i]
		}
	}
	return store.NewSliceIterator(models), nil
}

// CacheWrap returns a btree overlay whose batch applies all writes in
// one bolt transaction.
func (s *BoltStore) CacheWrap() feemill.KVCacheWrap {
	return store.NewBTreeCacheWrap(s, &boltBatch{db: s.db}, nil)
}

// Commit is a noop: bolt transactions are durable once written.
func (s *BoltStore) Commit() error {
	return nil
}

// Close releases the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// boltBatch buffers cache-wrap writes and flushes them in a single
// Update transaction.
type boltBatch struct {
	db  *bolt.DB
	ops []store.Op
}

var _ feemill.Batch = (*boltBatch)(nil)

func (b *boltBatch) Set(key, value []byte) error {
	b.ops = append(b.ops, store.SetOp(key, value))
	return nil
}

func (b *boltBatch) Delete(key []byte) error {
	b.ops = append(b.ops, store.DelOp(key))
	return nil
}

func (b *boltBatch) Write() error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(stateBucket)
		for _, op := range b.ops {
			if err := op.Apply(txWriter{bucket}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(errors.ErrDatabase, "batch write: %s", err)
	}
	b.ops = nil
	return nil
}

// txWriter adapts a bolt bucket to the SetDeleter interface.
type txWriter struct {
	bucket *bolt.Bucket
}

func (w txWriter) Set(key, value []byte) error {
	return w.bucket.Put(key, value)
}

func (w txWriter) Delete(key []byte) error {
	return w.bucket.Delete(key)
}
