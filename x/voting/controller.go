package voting

import (
	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/orm"
	"github.com/feemill/feemill/x/auction"
)

// TokenMover is the fungible-asset ledger surface the distributor uses.
type TokenMover interface {
	Move(db feemill.KVStore, ticker coin.Ticker, src, dest feemill.Address, amount coin.Amount) error
}

// PowerSource reports an account's currently available voting weight.
// Consulted at vote time only, never stored.
type PowerSource interface {
	VotingPower(db feemill.ReadOnlyKVStore, account feemill.Address) (coin.Amount, error)
}

// StreamKeeper mirrors vote weight into the reward streams. Implemented
// by the stream controller.
type StreamKeeper interface {
	AddToken(db feemill.CacheableKVStore, strategyID int64, ticker coin.Ticker) error
	Deposit(db feemill.CacheableKVStore, strategyID int64, account feemill.Address, amount coin.Amount) error
	Withdraw(db feemill.CacheableKVStore, strategyID int64, account feemill.Address, amount coin.Amount) error
}

// MarketKeeper creates the per-strategy auction at registration.
// Implemented by the auction market controller.
type MarketKeeper interface {
	Register(db feemill.CacheableKVStore, strategyID int64, paymentToken, assetToken coin.Ticker, receiver feemill.Address, epochPeriod feemill.UnixDuration, priceMultiplierBps uint32, minInitPrice coin.Amount) error
}

// Allocation is one (strategy, relative weight) pair of a vote.
type Allocation struct {
	StrategyID int64
	Weight     coin.Amount
}

// LedgerController owns the strategy registry, all vote bookkeeping
// and the global revenue index.
type LedgerController struct {
	tokens  TokenMover
	power   PowerSource
	streams StreamKeeper
	markets MarketKeeper
	clock   clock.Clock
	log     *zap.Logger
}

// NewLedgerController returns a voting ledger controller. A nil clock
// defaults to the wall clock and a nil logger to a no-op logger.
func NewLedgerController(tokens TokenMover, power PowerSource, streams StreamKeeper, markets MarketKeeper, clk clock.Clock, log *zap.Logger) *LedgerController {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &LedgerController{
		tokens:  tokens,
		power:   power,
		streams: streams,
		markets: markets,
		clock:   clk,
		log:     log,
	}
}

// RegisterStrategy creates a strategy together with its auction and
// reward stream. The supply index starts at the current global index,
// so revenue notified earlier is never retroactively claimed.
func (c *LedgerController) RegisterStrategy(
	db feemill.CacheableKVStore,
	paymentToken coin.Ticker,
	receiver feemill.Address,
	epochPeriod feemill.UnixDuration,
	priceMultiplierBps uint32,
	minInitPrice coin.Amount,
) (int64, error) {
	var strategyID int64
	err := feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		dist, err := loadDist(db)
		if err != nil {
			return err
		}
		strategyID, err = strategySeq.NextInt(db)
		if err != nil {
			return err
		}
		s := Strategy{
			PaymentToken: paymentToken,
			Receiver:     receiver,
			Alive:        true,
			SupplyIndex:  dist.GlobalIndex,
		}
		if err := strategyBucket.Put(db, strategyKey(strategyID), &s); err != nil {
			return err
		}
		if err := c.markets.Register(db, strategyID, paymentToken, conf.Revenue, receiver, epochPeriod, priceMultiplierBps, minInitPrice); err != nil {
			return errors.Wrap(err, "auction")
		}
		if err := c.streams.AddToken(db, strategyID, paymentToken); err != nil {
			return errors.Wrap(err, "stream")
		}
		c.log.Info("strategy registered",
			zap.Int64("strategy", strategyID),
			zap.String("payment", paymentToken.String()),
		)
		return nil
	})
	return strategyID, err
}

// Vote commits the account's whole available weight, split across the
// targets in proportion to their relative weights. Dead and unknown
// targets are dropped silently; everything else about the call is
// strict. Once per epoch per account.
func (c *LedgerController) Vote(db feemill.CacheableKVStore, voter feemill.Address, allocs []Allocation) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		epoch := c.currentEpoch(conf)

		rec, err := loadVotes(db, voter)
		if err != nil {
			return err
		}
		if rec.LastVotedEpoch == epoch {
			return errors.Wrapf(ErrAlreadyVoted, "epoch %d", epoch)
		}

		seen := make(map[int64]struct{}, len(allocs))
		for _, a := range allocs {
			if _, ok := seen[a.StrategyID]; ok {
				return errors.Wrapf(ErrDuplicateTarget, "strategy %d", a.StrategyID)
			}
			seen[a.StrategyID] = struct{}{}
		}

		power, err := c.power.VotingPower(db, voter)
		if err != nil {
			return errors.Wrap(err, "voting power")
		}
		if power.Cmp(rec.UsedWeight) <= 0 {
			return errors.Wrap(ErrNoWeight, voter.String())
		}
		available, err := power.Sub(rec.UsedWeight)
		if err != nil {
			return err
		}

		// Dead and unknown strategies are filtered out, not failed
		// on. The remaining targets share the whole available
		// weight.
		type target struct {
			id  int64
			rel coin.Amount
		}
		var targets []target
		sum := coin.Amount{}
		for _, a := range allocs {
			var s Strategy
			switch err := strategyBucket.One(db, strategyKey(a.StrategyID), &s); {
			case errors.ErrNotFound.Is(err):
				continue
			case err != nil:
				return err
			}
			if !s.Alive {
				continue
			}
			targets = append(targets, target{id: a.StrategyID, rel: a.Weight})
			if sum, err = sum.Add(a.Weight); err != nil {
				return err
			}
		}
		if len(targets) == 0 {
			return errors.Wrap(errors.ErrEmpty, "no alive vote targets")
		}
		if sum.IsZero() {
			return errors.Wrap(ErrZeroAllocation, "all relative weights zero")
		}

		dist, err := loadDist(db)
		if err != nil {
			return err
		}

		spent := coin.Amount{}
		for i, tgt := range targets {
			var assigned coin.Amount
			if i == len(targets)-1 {
				// The last target absorbs the rounding
				// remainder so the full available weight is
				// spent exactly.
				if assigned, err = available.Sub(spent); err != nil {
					return err
				}
			} else {
				if assigned, err = available.MulDiv(tgt.rel, sum); err != nil {
					return err
				}
			}
			if assigned.IsZero() {
				return errors.Wrapf(ErrZeroAllocation, "strategy %d", tgt.id)
			}

			// Catch the strategy up to the index before its
			// weight changes, or the new weight would claim
			// revenue notified before this vote.
			s, err := c.catchUp(db, tgt.id, dist)
			if err != nil {
				return err
			}
			if s.Weight, err = s.Weight.Add(assigned); err != nil {
				return err
			}
			if err := strategyBucket.Put(db, strategyKey(tgt.id), s); err != nil {
				return err
			}
			if dist.TotalWeight, err = dist.TotalWeight.Add(assigned); err != nil {
				return err
			}
			if err := c.streams.Deposit(db, tgt.id, voter, assigned); err != nil {
				return errors.Wrap(err, "stream deposit")
			}
			mergeVote(&rec, tgt.id, assigned)
			if spent, err = spent.Add(assigned); err != nil {
				return err
			}
		}

		if err := distBucket.Put(db, distKey, dist); err != nil {
			return err
		}
		if rec.UsedWeight, err = rec.UsedWeight.Add(available); err != nil {
			return err
		}
		rec.LastVotedEpoch = epoch
		if err := votesBucket.Put(db, voter, &rec); err != nil {
			return err
		}

		c.log.Debug("vote recorded",
			zap.String("voter", voter.String()),
			zap.String("weight", available.String()),
			zap.Int("targets", len(targets)),
		)
		return nil
	})
}

// Reset clears the account's committed votes, returning the weight to
// the account's available pool. This works on dead strategies too and
// is the only way a dead strategy's weight ever leaves the total. Once
// per epoch per account.
func (c *LedgerController) Reset(db feemill.CacheableKVStore, voter feemill.Address) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		epoch := c.currentEpoch(conf)

		rec, err := loadVotes(db, voter)
		if err != nil {
			return err
		}
		if rec.LastResetEpoch == epoch {
			return errors.Wrapf(ErrAlreadyReset, "epoch %d", epoch)
		}
		if len(rec.Votes) == 0 {
			return errors.Wrap(errors.ErrEmpty, "no votes to reset")
		}

		dist, err := loadDist(db)
		if err != nil {
			return err
		}
		for _, entry := range rec.Votes {
			s, err := c.catchUp(db, entry.StrategyID, dist)
			if err != nil {
				return err
			}
			if s.Weight, err = s.Weight.Sub(entry.Weight); err != nil {
				return errors.Wrapf(err, "strategy %d weight", entry.StrategyID)
			}
			if err := strategyBucket.Put(db, strategyKey(entry.StrategyID), s); err != nil {
				return err
			}
			if dist.TotalWeight, err = dist.TotalWeight.Sub(entry.Weight); err != nil {
				return errors.Wrap(err, "total weight")
			}
			if err := c.streams.Withdraw(db, entry.StrategyID, voter, entry.Weight); err != nil {
				return errors.Wrap(err, "stream withdraw")
			}
		}
		if err := distBucket.Put(db, distKey, dist); err != nil {
			return err
		}

		rec.Votes = nil
		rec.UsedWeight = coin.Amount{}
		rec.LastResetEpoch = epoch
		return votesBucket.Put(db, voter, &rec)
	})
}

// NotifyRevenue is the single entry point for new revenue. The amount
// is pulled from the source into custody and the global index advances
// by its weight-normalized share. With no weight anywhere the amount
// goes straight to the fallback sink instead.
func (c *LedgerController) NotifyRevenue(db feemill.CacheableKVStore, source feemill.Address, amount coin.Amount) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		if amount.IsZero() {
			return errors.Wrap(errors.ErrAmount, "zero revenue")
		}
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		dist, err := loadDist(db)
		if err != nil {
			return err
		}
		if dist.TotalWeight.IsZero() {
			if err := c.tokens.Move(db, conf.Revenue, source, conf.FallbackSink, amount); err != nil {
				return errors.Wrap(err, "sink")
			}
			revenueMtc.WithLabelValues("sink").Inc()
			return nil
		}

		delta, err := amount.MulDiv(coin.Scale, dist.TotalWeight)
		if err != nil {
			return err
		}
		if dist.GlobalIndex, err = dist.GlobalIndex.Add(delta); err != nil {
			return err
		}
		if err := distBucket.Put(db, distKey, dist); err != nil {
			return err
		}
		if err := c.tokens.Move(db, conf.Revenue, source, CustodyAccount(), amount); err != nil {
			return errors.Wrap(err, "custody")
		}
		revenueMtc.WithLabelValues("index").Inc()
		c.log.Debug("revenue notified", zap.String("amount", amount.String()))
		return nil
	})
}

// UpdateStrategy catches the strategy up to the current global index.
// Dead strategies advance their index too, discarding their share.
func (c *LedgerController) UpdateStrategy(db feemill.CacheableKVStore, strategyID int64) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		dist, err := loadDist(db)
		if err != nil {
			return err
		}
		s, err := c.catchUp(db, strategyID, dist)
		if err != nil {
			return err
		}
		return strategyBucket.Put(db, strategyKey(strategyID), s)
	})
}

// Distribute pushes the strategy's accrued revenue share from custody
// into its auction balance. Idempotent: with no new revenue the second
// call moves nothing.
func (c *LedgerController) Distribute(db feemill.CacheableKVStore, strategyID int64) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		dist, err := loadDist(db)
		if err != nil {
			return err
		}
		s, err := c.catchUp(db, strategyID, dist)
		if err != nil {
			return err
		}
		if !s.Claimable.IsZero() {
			amount := s.Claimable
			s.Claimable = coin.Amount{}
			if err := c.tokens.Move(db, conf.Revenue, CustodyAccount(), auction.AssetsAccount(strategyID), amount); err != nil {
				return errors.Wrap(err, "to auction")
			}
			distributeMtc.Inc()
			c.log.Debug("distributed",
				zap.Int64("strategy", strategyID),
				zap.String("amount", amount.String()),
			)
		}
		return strategyBucket.Put(db, strategyKey(strategyID), s)
	})
}

// DistributeAll distributes every registered strategy.
func (c *LedgerController) DistributeAll(db feemill.CacheableKVStore) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		ids, err := c.strategyIDs(db)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := c.Distribute(db, id); err != nil {
				return errors.Wrapf(err, "strategy %d", id)
			}
		}
		return nil
	})
}

// KillStrategy irreversibly removes a strategy from revenue accrual.
// Its accrued share goes to the fallback sink. Weight is deliberately
// left in place: zeroing it would make a later voter reset underflow,
// trapping the voter's stake forever.
func (c *LedgerController) KillStrategy(db feemill.CacheableKVStore, strategyID int64) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		dist, err := loadDist(db)
		if err != nil {
			return err
		}
		s, err := c.catchUp(db, strategyID, dist)
		if err != nil {
			return err
		}
		if !s.Alive {
			return errors.Wrapf(ErrDeadStrategy, "strategy %d", strategyID)
		}
		if !s.Claimable.IsZero() {
			amount := s.Claimable
			s.Claimable = coin.Amount{}
			if err := c.tokens.Move(db, conf.Revenue, CustodyAccount(), conf.FallbackSink, amount); err != nil {
				return errors.Wrap(err, "to sink")
			}
		}
		s.Alive = false
		if err := strategyBucket.Put(db, strategyKey(strategyID), s); err != nil {
			return err
		}
		c.log.Info("strategy killed", zap.Int64("strategy", strategyID))
		return nil
	})
}

// GetStrategy returns the stored strategy state.
func (c *LedgerController) GetStrategy(db feemill.ReadOnlyKVStore, strategyID int64) (*Strategy, error) {
	var s Strategy
	if err := strategyBucket.One(db, strategyKey(strategyID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Votes returns the account's vote record, empty when it never voted.
func (c *LedgerController) Votes(db feemill.ReadOnlyKVStore, voter feemill.Address) (*AccountVotes, error) {
	rec, err := loadVotes(db, voter)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetDistribution returns the global accounting state.
func (c *LedgerController) GetDistribution(db feemill.ReadOnlyKVStore) (*Distribution, error) {
	dist, err := loadDist(db)
	if err != nil {
		return nil, err
	}
	return dist, nil
}

// CurrentEpoch returns the epoch-clock value gating votes and resets.
func (c *LedgerController) CurrentEpoch(db feemill.ReadOnlyKVStore) (int64, error) {
	conf, err := loadConf(db)
	if err != nil {
		return 0, err
	}
	return c.currentEpoch(conf), nil
}

// catchUp accrues the strategy's pending index share into claimable
// and advances its supply index. The caller is responsible for saving
// the returned strategy.
func (c *LedgerController) catchUp(db feemill.KVStore, strategyID int64, dist *Distribution) (*Strategy, error) {
	var s Strategy
	if err := strategyBucket.One(db, strategyKey(strategyID), &s); err != nil {
		return nil, err
	}
	delta, err := dist.GlobalIndex.Sub(s.SupplyIndex)
	if err != nil {
		return nil, err
	}
	if s.Alive && !s.Weight.IsZero() && !delta.IsZero() {
		share, err := s.Weight.MulDiv(delta, coin.Scale)
		if err != nil {
			return nil, err
		}
		if s.Claimable, err = s.Claimable.Add(share); err != nil {
			return nil, err
		}
	}
	s.SupplyIndex = dist.GlobalIndex
	return &s, nil
}

func (c *LedgerController) strategyIDs(db feemill.ReadOnlyKVStore) ([]int64, error) {
	var ids []int64
	var s Strategy
	err := strategyBucket.Iterate(db, nil, &s, func(key []byte) error {
		ids = append(ids, orm.DecodeSequence(key))
		return nil
	})
	return ids, err
}

// currentEpoch numbers epochs from one so the zero value always means
// "never".
func (c *LedgerController) currentEpoch(conf Configuration) int64 {
	now := feemill.AsUnixTime(c.clock.Now())
	return int64(now)/int64(conf.EpochLength) + 1
}

func loadVotes(db feemill.ReadOnlyKVStore, voter feemill.Address) (AccountVotes, error) {
	var rec AccountVotes
	if err := votesBucket.One(db, voter, &rec); err != nil {
		if errors.ErrNotFound.Is(err) {
			return AccountVotes{}, nil
		}
		return AccountVotes{}, err
	}
	return rec, nil
}

func loadDist(db feemill.ReadOnlyKVStore) (*Distribution, error) {
	var dist Distribution
	if err := distBucket.One(db, distKey, &dist); err != nil && !errors.ErrNotFound.Is(err) {
		return nil, err
	}
	return &dist, nil
}

// mergeVote folds the assignment into an existing entry for the same
// strategy, keeping entries unique.
func mergeVote(rec *AccountVotes, strategyID int64, assigned coin.Amount) {
	for i := range rec.Votes {
		if rec.Votes[i].StrategyID == strategyID {
			// Both amounts were added without overflow to the
			// strategy weight already.
			sum, _ := rec.Votes[i].Weight.Add(assigned)
			rec.Votes[i].Weight = sum
			return
		}
	}
	rec.Votes = append(rec.Votes, VoteEntry{StrategyID: strategyID, Weight: assigned})
}
