package stream

import (
	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/orm"
)

// TokenMover is the subset of a fungible-asset ledger the streams need:
// moving the streamed tokens out of custody on payout.
type TokenMover interface {
	Move(db feemill.KVStore, ticker coin.Ticker, src, dest feemill.Address, amount coin.Amount) error
}

// Controller manages all stream groups. It holds no state of its own;
// everything lives in the store.
type Controller struct {
	tokens TokenMover
	clock  clock.Clock
	log    *zap.Logger
}

// NewController returns a stream controller. A nil clock defaults to
// the wall clock and a nil logger to a no-op logger.
func NewController(tokens TokenMover, clk clock.Clock, log *zap.Logger) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		tokens: tokens,
		clock:  clk,
		log:    log,
	}
}

func (c *Controller) now() feemill.UnixTime {
	return feemill.AsUnixTime(c.clock.Now())
}

// AddToken registers a new reward token for the strategy's stream
// group. Registering the same token twice fails with ErrTokenExists.
func (c *Controller) AddToken(db feemill.CacheableKVStore, strategyID int64, ticker coin.Ticker) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		if err := ticker.Validate(); err != nil {
			return err
		}
		key := streamKey(strategyID, ticker)
		switch ok, err := streamBucket.Has(db, key); {
		case err != nil:
			return err
		case ok:
			return errors.Wrapf(ErrTokenExists, "%s", ticker)
		}
		s := Stream{Ticker: ticker}
		return streamBucket.Put(db, key, &s)
	})
}

// Tokens returns all reward tokens registered for the strategy, in
// registration-independent ascending order.
func (c *Controller) Tokens(db feemill.ReadOnlyKVStore, strategyID int64) ([]coin.Ticker, error) {
	var tickers []coin.Ticker
	var s Stream
	err := streamBucket.Iterate(db, strategyKey(strategyID), &s, func([]byte) error {
		tickers = append(tickers, s.Ticker)
		return nil
	})
	return tickers, err
}

// NotifyReward starts (or extends) streaming of the given amount over
// the configured duration. When the previous period has not finished
// yet, its unspent remainder is rolled into the new rate. The tokens
// must already sit in the strategy's reward account when this is
// called.
//
// The rate division truncates: up to Duration-1 units of every
// notification are not distributed. This is an accepted throughput
// loss, not a bug.
func (c *Controller) NotifyReward(db feemill.CacheableKVStore, strategyID int64, ticker coin.Ticker, amount coin.Amount) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		conf, err := loadConf(db)
		if err != nil {
			return err
		}
		s, err := c.updateReward(db, strategyID, ticker, nil)
		if err != nil {
			return err
		}

		now := c.now()
		duration := coin.NewAmount(uint64(conf.Duration))
		budget := amount
		if now < s.PeriodFinish {
			// Roll the unspent remainder of the running period
			// into the new rate.
			left := coin.NewAmount(uint64(s.PeriodFinish - now))
			remaining, err := left.Mul(s.RewardRate)
			if err != nil {
				return err
			}
			if budget, err = budget.Add(remaining); err != nil {
				return err
			}
		}
		rate, err := budget.Div(duration)
		if err != nil {
			return err
		}

		s.RewardRate = rate
		s.LastUpdate = now
		s.PeriodFinish = now.Add(conf.Duration.Duration())
		if err := streamBucket.Put(db, streamKey(strategyID, ticker), s); err != nil {
			return err
		}

		c.log.Debug("reward notified",
			zap.Int64("strategy", strategyID),
			zap.String("ticker", ticker.String()),
			zap.String("amount", amount.String()),
			zap.String("rate", rate.String()),
		)
		return nil
	})
}

// Deposit mirrors committed vote weight into the strategy's stream
// group. Only the voting ledger may call this; the amounts are virtual
// weights, not token balances.
func (c *Controller) Deposit(db feemill.CacheableKVStore, strategyID int64, account feemill.Address, amount coin.Amount) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		if err := c.checkpointAccount(db, strategyID, account); err != nil {
			return err
		}

		supply, err := loadWeight(db, supplyBucket, strategyKey(strategyID))
		if err != nil {
			return err
		}
		if supply.Amount, err = supply.Amount.Add(amount); err != nil {
			return err
		}
		if err := supplyBucket.Put(db, strategyKey(strategyID), &supply); err != nil {
			return err
		}

		bal, err := loadWeight(db, balanceBucket, balanceKey(strategyID, account))
		if err != nil {
			return err
		}
		if bal.Amount, err = bal.Amount.Add(amount); err != nil {
			return err
		}
		return balanceBucket.Put(db, balanceKey(strategyID, account), &bal)
	})
}

// Withdraw removes mirrored vote weight from the strategy's stream
// group. Only the voting ledger may call this.
func (c *Controller) Withdraw(db feemill.CacheableKVStore, strategyID int64, account feemill.Address, amount coin.Amount) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		if err := c.checkpointAccount(db, strategyID, account); err != nil {
			return err
		}

		supply, err := loadWeight(db, supplyBucket, strategyKey(strategyID))
		if err != nil {
			return err
		}
		if supply.Amount, err = supply.Amount.Sub(amount); err != nil {
			return errors.Wrap(err, "supply")
		}
		if err := supplyBucket.Put(db, strategyKey(strategyID), &supply); err != nil {
			return err
		}

		bal, err := loadWeight(db, balanceBucket, balanceKey(strategyID, account))
		if err != nil {
			return err
		}
		if bal.Amount, err = bal.Amount.Sub(amount); err != nil {
			return errors.Wrap(err, "balance")
		}
		return balanceBucket.Put(db, balanceKey(strategyID, account), &bal)
	})
}

// GetReward settles and pays out every registered reward token owed to
// the account. Safe to call with nothing accrued; that is a no-op.
func (c *Controller) GetReward(db feemill.CacheableKVStore, strategyID int64, account feemill.Address) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		tickers, err := c.Tokens(db, strategyID)
		if err != nil {
			return err
		}
		for _, ticker := range tickers {
			if _, err := c.updateReward(db, strategyID, ticker, account); err != nil {
				return err
			}
			key := checkpointKey(strategyID, account, ticker)
			var chk Checkpoint
			if err := checkpointBucket.One(db, key, &chk); err != nil {
				if errors.ErrNotFound.Is(err) {
					continue
				}
				return err
			}
			if chk.Owed.IsZero() {
				continue
			}
			owed := chk.Owed
			chk.Owed = coin.Amount{}
			if err := checkpointBucket.Put(db, key, &chk); err != nil {
				return err
			}
			if err := c.tokens.Move(db, ticker, RewardAccount(strategyID), account, owed); err != nil {
				return errors.Wrapf(err, "pay out %s", ticker)
			}
			c.log.Debug("reward paid",
				zap.Int64("strategy", strategyID),
				zap.String("ticker", ticker.String()),
				zap.String("account", account.String()),
				zap.String("amount", owed.String()),
			)
		}
		return nil
	})
}

// RewardPerToken returns the current value of the per-token
// accumulator, including the portion accrued since the last write.
func (c *Controller) RewardPerToken(db feemill.ReadOnlyKVStore, strategyID int64, ticker coin.Ticker) (coin.Amount, error) {
	var s Stream
	if err := streamBucket.One(db, streamKey(strategyID, ticker), &s); err != nil {
		return coin.Amount{}, err
	}
	supply, err := loadWeight(db, supplyBucket, strategyKey(strategyID))
	if err != nil {
		return coin.Amount{}, err
	}
	return rewardPerToken(&s, supply.Amount, c.now())
}

// Earned returns the total amount of the given token the account could
// withdraw right now.
func (c *Controller) Earned(db feemill.ReadOnlyKVStore, strategyID int64, account feemill.Address, ticker coin.Ticker) (coin.Amount, error) {
	rpt, err := c.RewardPerToken(db, strategyID, ticker)
	if err != nil {
		return coin.Amount{}, err
	}
	bal, err := loadWeight(db, balanceBucket, balanceKey(strategyID, account))
	if err != nil {
		return coin.Amount{}, err
	}
	var chk Checkpoint
	if err := checkpointBucket.One(db, checkpointKey(strategyID, account, ticker), &chk); err != nil && !errors.ErrNotFound.Is(err) {
		return coin.Amount{}, err
	}
	return earned(bal.Amount, rpt, &chk)
}

// TotalSupply returns the mirrored weight total of the strategy.
func (c *Controller) TotalSupply(db feemill.ReadOnlyKVStore, strategyID int64) (coin.Amount, error) {
	w, err := loadWeight(db, supplyBucket, strategyKey(strategyID))
	return w.Amount, err
}

// BalanceOf returns the mirrored weight of the account within the
// strategy's stream group.
func (c *Controller) BalanceOf(db feemill.ReadOnlyKVStore, strategyID int64, account feemill.Address) (coin.Amount, error) {
	w, err := loadWeight(db, balanceBucket, balanceKey(strategyID, account))
	return w.Amount, err
}

// MinEffectiveAmount returns the smallest notification amount that
// still produces a non-zero reward rate. Anything below it truncates
// to a zero rate and would stream nothing.
func (c *Controller) MinEffectiveAmount(db feemill.ReadOnlyKVStore) (coin.Amount, error) {
	conf, err := loadConf(db)
	if err != nil {
		return coin.Amount{}, err
	}
	return coin.NewAmount(uint64(conf.Duration)), nil
}

// updateReward advances the token accumulator to now and, when an
// account is given, settles that account's share against it. Returns
// the updated stream so the caller can continue working with it.
func (c *Controller) updateReward(db feemill.KVStore, strategyID int64, ticker coin.Ticker, account feemill.Address) (*Stream, error) {
	key := streamKey(strategyID, ticker)
	var s Stream
	if err := streamBucket.One(db, key, &s); err != nil {
		return nil, err
	}
	supply, err := loadWeight(db, supplyBucket, strategyKey(strategyID))
	if err != nil {
		return nil, err
	}
	now := c.now()
	rpt, err := rewardPerToken(&s, supply.Amount, now)
	if err != nil {
		return nil, err
	}
	s.RewardPerTokenStored = rpt
	s.LastUpdate = lastTimeApplicable(&s, now)
	if err := streamBucket.Put(db, key, &s); err != nil {
		return nil, err
	}

	if account != nil {
		bal, err := loadWeight(db, balanceBucket, balanceKey(strategyID, account))
		if err != nil {
			return nil, err
		}
		chkKey := checkpointKey(strategyID, account, ticker)
		var chk Checkpoint
		if err := checkpointBucket.One(db, chkKey, &chk); err != nil && !errors.ErrNotFound.Is(err) {
			return nil, err
		}
		owed, err := earned(bal.Amount, rpt, &chk)
		if err != nil {
			return nil, err
		}
		chk.Owed = owed
		chk.RewardPerTokenPaid = rpt
		if err := checkpointBucket.Put(db, chkKey, &chk); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// checkpointAccount settles the account against every registered token
// before its virtual balance changes.
func (c *Controller) checkpointAccount(db feemill.KVStore, strategyID int64, account feemill.Address) error {
	var s Stream
	return streamBucket.Iterate(db, strategyKey(strategyID), &s, func([]byte) error {
		_, err := c.updateReward(db, strategyID, s.Ticker, account)
		return err
	})
}

// lastTimeApplicable clamps now to the end of the reward period.
func lastTimeApplicable(s *Stream, now feemill.UnixTime) feemill.UnixTime {
	if now > s.PeriodFinish {
		return s.PeriodFinish
	}
	return now
}

// rewardPerToken computes the accumulator value at the given time. A
// zero supply returns the stored value unchanged: nothing accrues and
// nothing divides by zero.
func rewardPerToken(s *Stream, supply coin.Amount, now feemill.UnixTime) (coin.Amount, error) {
	if supply.IsZero() {
		return s.RewardPerTokenStored, nil
	}
	last := lastTimeApplicable(s, now)
	if last <= s.LastUpdate {
		return s.RewardPerTokenStored, nil
	}
	elapsed := coin.NewAmount(uint64(last - s.LastUpdate))
	streamed, err := elapsed.Mul(s.RewardRate)
	if err != nil {
		return coin.Amount{}, err
	}
	delta, err := streamed.MulDiv(coin.Scale, supply)
	if err != nil {
		return coin.Amount{}, err
	}
	return s.RewardPerTokenStored.Add(delta)
}

// earned derives the claimable amount from the accumulator distance
// covered since the account's last checkpoint.
func earned(balance, rpt coin.Amount, chk *Checkpoint) (coin.Amount, error) {
	diff, err := rpt.Sub(chk.RewardPerTokenPaid)
	if err != nil {
		return coin.Amount{}, err
	}
	share, err := balance.MulDiv(diff, coin.Scale)
	if err != nil {
		return coin.Amount{}, err
	}
	return share.Add(chk.Owed)
}

// loadWeight returns the stored weight or a zero value when the key
// was never written.
func loadWeight(db feemill.ReadOnlyKVStore, bucket orm.ModelBucket, key []byte) (Weight, error) {
	var w Weight
	if err := bucket.One(db, key, &w); err != nil {
		if errors.ErrNotFound.Is(err) {
			return Weight{}, nil
		}
		return Weight{}, err
	}
	return w, nil
}
