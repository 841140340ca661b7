package feemill

import (
	"encoding/json"

	"github.com/feemill/feemill/errors"
)

// Options is the raw configuration for the whole application. Each
// extension looks up its key and parses the JSON as desired.
type Options map[string]json.RawMessage

// ReadOptions reads the value stored under a given key and parses the
// JSON into the given obj. Noop and no error if the key is missing.
func (o Options) ReadOptions(key string, obj interface{}) error {
	msg := o[key]
	if len(msg) == 0 {
		return nil
	}
	if err := json.Unmarshal(msg, obj); err != nil {
		return errors.Wrapf(errors.ErrInput, "options %q: %s", key, err)
	}
	return nil
}

// Initializer implementations initialize an extension's state from
// configuration file contents.
type Initializer interface {
	FromGenesis(Options, KVStore) error
}
