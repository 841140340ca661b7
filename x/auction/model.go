package auction

import (
	"encoding/binary"
	"encoding/json"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/orm"
)

// Auction is the per-strategy Dutch auction state. EpochPeriod,
// PriceMultiplierBps and MinInitPrice are fixed at registration.
type Auction struct {
	// EpochID increments once per completed sale, never otherwise.
	EpochID   uint64           `json:"epoch_id"`
	StartTime feemill.UnixTime `json:"start_time"`
	// InitPrice is the price at the start of the current epoch.
	InitPrice   coin.Amount          `json:"init_price"`
	EpochPeriod feemill.UnixDuration `json:"epoch_period"`
	// PriceMultiplierBps scales the realized sale price, in basis
	// points, to seed the next epoch's initial price.
	PriceMultiplierBps uint32      `json:"price_multiplier_bps"`
	MinInitPrice       coin.Amount `json:"min_init_price"`
	// PaymentToken is what buyers pay with, AssetToken is what the
	// auction sells.
	PaymentToken coin.Ticker     `json:"payment_token"`
	AssetToken   coin.Ticker     `json:"asset_token"`
	Receiver     feemill.Address `json:"receiver"`
}

var _ orm.Model = (*Auction)(nil)

func (a *Auction) Validate() error {
	if a.EpochID == 0 {
		return errors.Wrap(errors.ErrState, "epoch id must start at one")
	}
	if err := a.StartTime.Validate(); err != nil {
		return errors.Wrap(err, "start time")
	}
	if err := a.EpochPeriod.Validate(); err != nil {
		return errors.Wrap(err, "epoch period")
	}
	if a.EpochPeriod <= 0 {
		return errors.Wrap(errors.ErrState, "epoch period must be positive")
	}
	if err := a.PaymentToken.Validate(); err != nil {
		return errors.Wrap(err, "payment token")
	}
	if err := a.AssetToken.Validate(); err != nil {
		return errors.Wrap(err, "asset token")
	}
	if err := a.Receiver.Validate(); err != nil {
		return errors.Wrap(err, "receiver")
	}
	return nil
}

func (a *Auction) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

func (a *Auction) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, a)
}

var auctionBucket = orm.NewModelBucket("auction")

func auctionKey(strategyID int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(strategyID))
	return key
}

// AssetsAccount returns the custody address holding the strategy's
// sellable asset balance.
func AssetsAccount(strategyID int64) feemill.Address {
	return feemill.NewCondition("auction", "assets", auctionKey(strategyID)).Address()
}
