package store

import "github.com/feemill/feemill"

// Aliases into the root package for shorter names everywhere.

type KVStore = feemill.KVStore
type ReadOnlyKVStore = feemill.ReadOnlyKVStore
type SetDeleter = feemill.SetDeleter
type Batch = feemill.Batch
type Iterator = feemill.Iterator
type CacheableKVStore = feemill.CacheableKVStore
type KVCacheWrap = feemill.KVCacheWrap
type CommitKVStore = feemill.CommitKVStore
