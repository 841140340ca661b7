/*
Package orm provides a thin model layer on top of the raw key-value
store: typed buckets with prefixed keys, model validation on write and
monotonic sequences for identifier assignment.
*/
package orm

import (
	"regexp"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/errors"
)

// Persistent is implemented by anything that can serialize itself to
// bytes and back.
type Persistent interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

// Model is implemented by any entity that can be stored using a
// ModelBucket.
type Model interface {
	Persistent
	Validate() error
}

// validBucketName is the format all bucket names must obey. Short ascii
// names keep raw keys readable in database dumps.
var validBucketName = regexp.MustCompile(`^[a-z_]{3,12}$`)

// ModelBucket stores models of one type under a shared key prefix.
type ModelBucket struct {
	prefix []byte
}

// NewModelBucket returns a bucket using the given name as the key
// prefix. It panics on an invalid name, as bucket declaration is a
// startup-phase operation.
func NewModelBucket(name string) ModelBucket {
	if !validBucketName.MatchString(name) {
		panic("invalid bucket name: " + name)
	}
	return ModelBucket{
		prefix: []byte(name + ":"),
	}
}

// DBKey returns the full database key for the given model key.
func (mb ModelBucket) DBKey(key []byte) []byte {
	return append(append([]byte{}, mb.prefix...), key...)
}

// One queries the store for a single model instance, loading it into
// dest. Returns ErrNotFound if the entity does not exist.
func (mb ModelBucket) One(db feemill.ReadOnlyKVStore, key []byte, dest Model) error {
	raw, err := db.Get(mb.DBKey(key))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%T not in the store", dest)
	}
	if err := dest.Unmarshal(raw); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "cannot unmarshal %T: %s", dest, err)
	}
	return nil
}

// Has checks for existence without loading the model.
func (mb ModelBucket) Has(db feemill.ReadOnlyKVStore, key []byte) (bool, error) {
	return db.Has(mb.DBKey(key))
}

// Put validates and saves the given model under the key.
func (mb ModelBucket) Put(db feemill.KVStore, key []byte, m Model) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := m.Marshal()
	if err != nil {
		return errors.Wrapf(errors.ErrDatabase, "cannot marshal %T: %s", m, err)
	}
	return db.Set(mb.DBKey(key), raw)
}

// Delete removes an entity with the given key. Returns ErrNotFound if
// the entity does not exist.
func (mb ModelBucket) Delete(db feemill.KVStore, key []byte) error {
	dbKey := mb.DBKey(key)
	ok, err := db.Has(dbKey)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "key %X", key)
	}
	return db.Delete(dbKey)
}

// Iterate walks models in the bucket in ascending key order, limited
// to model keys starting with the given prefix (nil for all). For
// every entity the value is unmarshaled into dest before fn is called
// with the model key (bucket prefix stripped). Iteration stops on the
// first error returned by fn.
func (mb ModelBucket) Iterate(db feemill.ReadOnlyKVStore, prefix []byte, dest Model, fn func(key []byte) error) error {
	start := mb.DBKey(prefix)
	end := prefixEnd(start)
	it, err := db.Iterator(start, end)
	if err != nil {
		return err
	}
	defer it.Close()

	for it.Valid() {
		if err := dest.Unmarshal(it.Value()); err != nil {
			return errors.Wrapf(errors.ErrDatabase, "cannot unmarshal %T: %s", dest, err)
		}
		key := it.Key()[len(mb.prefix):]
		if err := fn(key); err != nil {
			return err
		}
		if err := it.Next(); err != nil {
			return err
		}
	}
	return nil
}

// prefixEnd returns the first key that is no longer covered by the
// given prefix, to be used as an exclusive iteration end.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	// Prefix of all 0xff bytes: iterate to the end of the store.
	return nil
}
