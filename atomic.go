package feemill

// Atomic runs fn against a cache-wrap of the given store. When fn
// returns without an error, the cached writes are flushed down to db.
// On any error the cache is discarded and db is left exactly as it
// was, so a failed operation never leaves partial state behind.
//
// The store given to fn is itself cacheable, so atomic operations
// compose: an operation that calls other atomic operations nests
// cache-wraps and the whole composition still commits or rolls back as
// one unit.
func Atomic(db CacheableKVStore, fn func(CacheableKVStore) error) error {
	cache := db.CacheWrap()

	done := false
	defer func() {
		if !done {
			cache.Discard()
		}
	}()

	if err := fn(cache); err != nil {
		return err
	}
	done = true
	return cache.Write()
}
