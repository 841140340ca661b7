/*
Package gconf manages singleton configuration objects, one per
extension, stored in the same key-value store as the rest of the state.
Configuration is written during initialization and loaded by the
extension controllers on demand.
*/
package gconf

import (
	"encoding/json"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/errors"
)

// Configuration is implemented by every extension configuration object.
type Configuration interface {
	Validate() error
}

func confKey(pkg string) []byte {
	return []byte("_c:" + pkg)
}

// Save validates the object before writing it to the special
// configuration singleton key for that package name.
func Save(db feemill.KVStore, pkg string, src Configuration) error {
	if err := src.Validate(); err != nil {
		return errors.Wrapf(err, "validation: package %q", pkg)
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return errors.Wrapf(errors.ErrDatabase, "marshal %q configuration: %s", pkg, err)
	}
	return db.Set(confKey(pkg), raw)
}

// Load reads the configuration singleton of the given package into dst.
// Returns ErrNotFound when the package was never configured.
func Load(db feemill.ReadOnlyKVStore, pkg string, dst Configuration) error {
	raw, err := db.Get(confKey(pkg))
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%q configuration", pkg)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrapf(errors.ErrDatabase, "unmarshal %q configuration: %s", pkg, err)
	}
	return nil
}

// Init takes opts[pkg], parses it into the given configuration object,
// validates it and stores it under the proper key in the database.
func Init(db feemill.KVStore, opts feemill.Options, pkg string, conf Configuration) error {
	if opts[pkg] == nil {
		return errors.Wrapf(errors.ErrNotFound, "no configuration for %q package", pkg)
	}
	if err := opts.ReadOptions(pkg, conf); err != nil {
		return errors.Wrapf(err, "read configuration for %q", pkg)
	}
	if err := Save(db, pkg, conf); err != nil {
		return errors.Wrapf(err, "save configuration for %q", pkg)
	}
	return nil
}
