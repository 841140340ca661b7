package feemill

// ReadOnlyKVStore is the read side of every storage backend.
type ReadOnlyKVStore interface {
	// Get returns nil if the key does not exist.
	Get(key []byte) ([]byte, error)

	// Has checks for existence of a key.
	Has(key []byte) (bool, error)

	// Iterator iterates over a domain of keys in ascending order.
	// End is exclusive. Start must be less than end or the iterator
	// is invalid.
	// CONTRACT: no writes may happen within a domain while an
	// iterator exists over it.
	Iterator(start, end []byte) (Iterator, error)

	// ReverseIterator iterates over a domain of keys in descending
	// order. Start and end bound the domain the same way as for
	// Iterator: end is exclusive and start must be less than end or
	// the iterator is invalid.
	ReverseIterator(start, end []byte) (Iterator, error)
}

// KVStore is a simple interface to get/set data.
//
// All backing stores must implement at least this interface.
type KVStore interface {
	ReadOnlyKVStore

	// Set writes the given key. Panics on nil key.
	Set(key, value []byte) error

	// Delete removes the key. Panics on nil key.
	Delete(key []byte) error
}

// Iterator allows access to a set of items within a range of keys.
//
//	var itr Iterator = ...
//	defer itr.Close()
//
//	for ; itr.Valid(); itr.Next() {
//	    k, v := itr.Key(), itr.Value()
//	    ...
//	}
type Iterator interface {
	// Valid returns whether the current position is valid. Once
	// invalid, an iterator is forever invalid.
	Valid() bool

	// Next moves the iterator to the next sequential key. Panics if
	// Valid returns false.
	Next() error

	// Key returns the key of the cursor. Panics if Valid returns
	// false.
	// CONTRACT: key is read-only.
	Key() []byte

	// Value returns the value of the cursor. Panics if Valid returns
	// false.
	// CONTRACT: value is read-only.
	Value() []byte

	// Close releases the iterator.
	Close()
}

// SetDeleter is the write subset of KVStore.
type SetDeleter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Batch groups writes so they can be applied to a backend in one shot.
type Batch interface {
	SetDeleter
	Write() error
}

// CacheableKVStore is a KVStore that supports cache-wrapping. A
// cache-wrap groups temporary writes that may be committed or discarded
// together, like a database savepoint.
type CacheableKVStore interface {
	KVStore
	CacheWrap() KVCacheWrap
}

// KVCacheWrap is a scratch pad of uncommitted writes over a backing
// store. Call Write to flush the cached writes down, or Discard to drop
// them.
type KVCacheWrap interface {
	// CacheableKVStore allows recursive wrapping.
	CacheableKVStore

	// Write flushes the cached writes to the underlying store.
	Write() error

	// Discard invalidates this cache-wrap and releases all data.
	Discard()
}

// CommitKVStore is a store that can persist state and survive restarts.
type CommitKVStore interface {
	CacheableKVStore

	// Commit flushes pending writes to the persistence layer.
	Commit() error

	// Close releases the backend resources.
	Close() error
}
