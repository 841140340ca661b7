package stream

import (
	"github.com/feemill/feemill"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/gconf"
)

// Configuration is the stream extension configuration singleton.
type Configuration struct {
	// Duration is the fixed length every notified reward amount is
	// streamed over.
	Duration feemill.UnixDuration `json:"duration"`
}

var _ gconf.Configuration = (*Configuration)(nil)

func (c *Configuration) Validate() error {
	if c.Duration <= 0 {
		return errors.Wrap(errors.ErrState, "duration must be positive")
	}
	return nil
}

func loadConf(db feemill.ReadOnlyKVStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "stream", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}

// Initializer fulfils the feemill.Initializer interface to load
// configuration data from an application options file.
type Initializer struct{}

var _ feemill.Initializer = (*Initializer)(nil)

// FromGenesis initializes the stream configuration from the options.
func (*Initializer) FromGenesis(opts feemill.Options, db feemill.KVStore) error {
	var conf Configuration
	return gconf.Init(db, opts, "stream", &conf)
}
