package stream

import (
	"encoding/binary"
	"encoding/json"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/orm"
)

// Stream is the per (strategy, reward token) streaming state.
type Stream struct {
	Ticker coin.Ticker `json:"ticker"`
	// RewardRate is in token units per second, truncated on every
	// notification. The truncated remainder is an accepted loss.
	RewardRate   coin.Amount      `json:"reward_rate"`
	PeriodFinish feemill.UnixTime `json:"period_finish"`
	LastUpdate   feemill.UnixTime `json:"last_update"`
	// RewardPerTokenStored is a coin.Scale fixed-point accumulator.
	RewardPerTokenStored coin.Amount `json:"reward_per_token_stored"`
}

var _ orm.Model = (*Stream)(nil)

func (s *Stream) Validate() error {
	if err := s.Ticker.Validate(); err != nil {
		return errors.Wrap(err, "ticker")
	}
	if err := s.PeriodFinish.Validate(); err != nil {
		return errors.Wrap(err, "period finish")
	}
	if err := s.LastUpdate.Validate(); err != nil {
		return errors.Wrap(err, "last update")
	}
	return nil
}

func (s *Stream) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Stream) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, s)
}

// Checkpoint is the per (strategy, account, reward token) state: the
// accumulator value already settled and the amount owed but not paid
// out yet.
type Checkpoint struct {
	RewardPerTokenPaid coin.Amount `json:"reward_per_token_paid"`
	Owed               coin.Amount `json:"owed"`
}

var _ orm.Model = (*Checkpoint)(nil)

func (c *Checkpoint) Validate() error {
	return nil
}

func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

func (c *Checkpoint) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, c)
}

// Weight is a virtual balance mirrored from the voting ledger: the
// strategy total under the strategy key, an account share under the
// composite key.
type Weight struct {
	Amount coin.Amount `json:"amount"`
}

var _ orm.Model = (*Weight)(nil)

func (w *Weight) Validate() error {
	return nil
}

func (w *Weight) Marshal() ([]byte, error) {
	return json.Marshal(w)
}

func (w *Weight) Unmarshal(raw []byte) error {
	return json.Unmarshal(raw, w)
}

var (
	streamBucket     = orm.NewModelBucket("stream")
	checkpointBucket = orm.NewModelBucket("streamchk")
	supplyBucket     = orm.NewModelBucket("streamsup")
	balanceBucket    = orm.NewModelBucket("streambal")
)

// strategyKey is the 8 byte big-endian strategy identifier.
func strategyKey(strategyID int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(strategyID))
	return key
}

func streamKey(strategyID int64, ticker coin.Ticker) []byte {
	return append(strategyKey(strategyID), []byte(ticker)...)
}

func balanceKey(strategyID int64, account feemill.Address) []byte {
	return append(strategyKey(strategyID), account...)
}

func checkpointKey(strategyID int64, account feemill.Address, ticker coin.Ticker) []byte {
	return append(balanceKey(strategyID, account), []byte(ticker)...)
}

// RewardAccount returns the custody address holding the not yet
// claimed reward tokens streamed to a strategy's voters.
func RewardAccount(strategyID int64) feemill.Address {
	return feemill.NewCondition("stream", "rewards", strategyKey(strategyID)).Address()
}
