package voting

import (
	"encoding/binary"
	"encoding/json"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/orm"
)

// Strategy is a revenue-receiving unit voters direct weight toward.
// A strategy is never deleted; killing it flips Alive and stops any
// further revenue accrual, but its weight stays until every voter who
// still points at it resets.
type Strategy struct {
	PaymentToken coin.Ticker     `json:"payment_token"`
	Receiver     feemill.Address `json:"receiver"`
	Alive        bool            `json:"alive"`
	// Weight is the sum of all vote weight currently pointed here.
	Weight coin.Amount `json:"weight"`
	// SupplyIndex is the global index value observed on the last
	// catch-up. The distance to the current index is this strategy's
	// not yet accrued revenue share.
	SupplyIndex coin.Amount `json:"supply_index"`
	// Claimable is revenue accrued but not yet pushed into the
	// strategy's auction balance.
	Claimable coin.Amount `json:"claimable"`
}

var _ orm.Model = (*Strategy)(nil)

func (s *Strategy) Validate() error {
	if err := s.PaymentToken.Validate(); err != nil {
		return errors.Wrap(err, "payment token")
	}
	if err := s.Receiver.Validate(); err != nil {
		return errors.Wrap(err, "receiver")
	}
	return nil
}

func (s *Strategy) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Strategy) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, s)
}

// VoteEntry is one strategy allocation within an account's vote.
type VoteEntry struct {
	StrategyID int64       `json:"strategy_id"`
	Weight     coin.Amount `json:"weight"`
}

// AccountVotes tracks an account's committed weight. UsedWeight always
// equals the sum of the entries.
type AccountVotes struct {
	UsedWeight coin.Amount `json:"used_weight"`
	// LastVotedEpoch and LastResetEpoch gate each operation to once
	// per epoch. Zero means never; epoch numbering starts at one.
	LastVotedEpoch int64       `json:"last_voted_epoch"`
	LastResetEpoch int64       `json:"last_reset_epoch"`
	Votes          []VoteEntry `json:"votes,omitempty"`
}

var _ orm.Model = (*AccountVotes)(nil)

func (av *AccountVotes) Validate() error {
	return nil
}

func (av *AccountVotes) Marshal() ([]byte, error) {
	return json.Marshal(av)
}

func (av *AccountVotes) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, av)
}

// Distribution is the global revenue accounting singleton.
type Distribution struct {
	// TotalWeight equals the sum of all strategy weights.
	TotalWeight coin.Amount `json:"total_weight"`
	// GlobalIndex is the cumulative revenue per unit of weight,
	// fixed point scaled by coin.Scale. It never decreases.
	GlobalIndex coin.Amount `json:"global_index"`
}

var _ orm.Model = (*Distribution)(nil)

func (d *Distribution) Validate() error {
	return nil
}

func (d *Distribution) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

func (d *Distribution) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, d)
}

var (
	strategyBucket = orm.NewModelBucket("strategy")
	votesBucket    = orm.NewModelBucket("votes")
	distBucket     = orm.NewModelBucket("distribution")

	strategySeq = orm.NewSequence("strategy", "id")

	distKey = []byte("global")
)

func strategyKey(strategyID int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(strategyID))
	return key
}

// CustodyAccount returns the address holding notified revenue pending
// per-strategy distribution.
func CustodyAccount() feemill.Address {
	return feemill.NewCondition("voting", "custody", nil).Address()
}
