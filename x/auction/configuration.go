package auction

import (
	"github.com/feemill/feemill"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/gconf"
)

const (
	// Divisor is the basis point denominator used for split and
	// multiplier ratios.
	Divisor = 10000

	// MaxSplitBps bounds the bribe split strictly below 100% so the
	// strategy receiver always gets a share of every sale.
	MaxSplitBps = 9000
)

// Configuration is the auction extension configuration singleton.
type Configuration struct {
	// SplitBps is the share of every sale price, in basis points,
	// forwarded to the voters' reward stream. The remainder goes to
	// the strategy receiver.
	SplitBps uint32 `json:"split_bps"`
	// SkipDustBribe routes bribe amounts too small to produce a
	// non-zero streaming rate to the receiver instead of the stream.
	SkipDustBribe bool `json:"skip_dust_bribe"`
}

var _ gconf.Configuration = (*Configuration)(nil)

func (c *Configuration) Validate() error {
	if c.SplitBps > MaxSplitBps {
		return errors.Wrapf(errors.ErrState, "split above %d basis points", MaxSplitBps)
	}
	return nil
}

func loadConf(db feemill.ReadOnlyKVStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, "auction", &conf); err != nil {
		return conf, errors.Wrap(err, "load configuration")
	}
	return conf, nil
}

// Initializer fulfils the feemill.Initializer interface to load
// configuration data from an application options file.
type Initializer struct{}

var _ feemill.Initializer = (*Initializer)(nil)

// FromGenesis initializes the auction configuration from the options.
func (*Initializer) FromGenesis(opts feemill.Options, db feemill.KVStore) error {
	var conf Configuration
	return gconf.Init(db, opts, "auction", &conf)
}
