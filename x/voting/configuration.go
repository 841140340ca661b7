package voting

import (
	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/gconf"
)

// Configuration is the voting extension configuration singleton.
type Configuration struct {
	// EpochLength is the period gating how often an account may vote
	// or reset.
	EpochLength feemill.UnixDuration `json:"epoch_length"`
	// Revenue is the token all notified revenue arrives in. It is
	// also what the auctions sell.
	Revenue coin.Ticker `json:"revenue"`
	// FallbackSink receives revenue when nothing has any weight, and
	// the discarded share of killed strategies.
	FallbackSink feemill.Address `json:"fallback_sink"`
}

var _ gconf.Configuration = (*Configuration)(nil)

func (c *Configuration) Validate() error {
	if c.EpochLength <= 0 {
		return errors.Wrap(errors.ErrState, "epoch length must be positive")
	}
	if err := c.Revenue.Validate(); err != nil {
		return errors.Wrap(err, "revenue token")
	}
	if err := c.FallbackSink.Validate(); err != nil {
		return errors.Wrap(err, "fallback sink")
	}
	return nil
}

func loadConf(db feemill.ReadOnlyKVStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "voting", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}

// Initializer fulfils the feemill.Initializer interface to load
// configuration data from an application options file.
type Initializer struct{}

var _ feemill.Initializer = (*Initializer)(nil)

// FromGenesis initializes the voting configuration from the options.
func (*Initializer) FromGenesis(opts feemill.Options, db feemill.KVStore) error {
	var conf Configuration
	return gconf.Init(db, opts, "voting", &conf)
}
