package auction

import (
	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/x/stream"
)

// TokenMover is the fungible-asset ledger surface the auctions use.
type TokenMover interface {
	Move(db feemill.KVStore, ticker coin.Ticker, src, dest feemill.Address, amount coin.Amount) error
	Balance(db feemill.ReadOnlyKVStore, ticker coin.Ticker, acct feemill.Address) (coin.Amount, error)
}

// RewardNotifier receives the bribe cut of every sale. Implemented by
// the stream controller.
type RewardNotifier interface {
	NotifyReward(db feemill.CacheableKVStore, strategyID int64, ticker coin.Ticker, amount coin.Amount) error
	MinEffectiveAmount(db feemill.ReadOnlyKVStore) (coin.Amount, error)
}

// MarketController manages all per-strategy auctions.
type MarketController struct {
	tokens  TokenMover
	streams RewardNotifier
	clock   clock.Clock
	log     *zap.Logger
}

// NewMarketController returns an auction controller. A nil clock
// defaults to the wall clock and a nil logger to a no-op logger.
func NewMarketController(tokens TokenMover, streams RewardNotifier, clk clock.Clock, log *zap.Logger) *MarketController {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MarketController{
		tokens:  tokens,
		streams: streams,
		clock:   clk,
		log:     log,
	}
}

func (c *MarketController) now() feemill.UnixTime {
	return feemill.AsUnixTime(c.clock.Now())
}

// Register creates the auction for a strategy. The decay parameters
// are immutable afterwards. The first epoch starts immediately at the
// minimal initial price.
func (c *MarketController) Register(
	db feemill.CacheableKVStore,
	strategyID int64,
	paymentToken, assetToken coin.Ticker,
	receiver feemill.Address,
	epochPeriod feemill.UnixDuration,
	priceMultiplierBps uint32,
	minInitPrice coin.Amount,
) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		key := auctionKey(strategyID)
		switch ok, err := auctionBucket.Has(db, key); {
		case err != nil:
			return err
		case ok:
			return errors.Wrapf(errors.ErrDuplicate, "auction %d", strategyID)
		}
		a := Auction{
			EpochID:            1,
			StartTime:          c.now(),
			InitPrice:          minInitPrice,
			EpochPeriod:        epochPeriod,
			PriceMultiplierBps: priceMultiplierBps,
			MinInitPrice:       minInitPrice,
			PaymentToken:       paymentToken,
			AssetToken:         assetToken,
			Receiver:           receiver,
		}
		return auctionBucket.Put(db, key, &a)
	})
}

// Get returns the auction state of a strategy.
func (c *MarketController) Get(db feemill.ReadOnlyKVStore, strategyID int64) (*Auction, error) {
	var a Auction
	if err := auctionBucket.One(db, auctionKey(strategyID), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Price returns the current sale price: a pure function of the time
// elapsed in the epoch, never cached.
func (c *MarketController) Price(db feemill.ReadOnlyKVStore, strategyID int64) (coin.Amount, error) {
	a, err := c.Get(db, strategyID)
	if err != nil {
		return coin.Amount{}, err
	}
	return currentPrice(a, c.now())
}

// Buy sells the strategy's whole asset balance to the recipient at the
// current price, paid by the buyer. The expected epoch id must match
// the auction's: it proves the buyer priced against the current epoch
// and no other purchase completed in between. A price of zero is a
// valid free sale.
func (c *MarketController) Buy(
	db feemill.CacheableKVStore,
	strategyID int64,
	buyer, recipient feemill.Address,
	expectedEpochID uint64,
	deadline feemill.UnixTime,
	maxPayment coin.Amount,
) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		now := c.now()
		if now > deadline {
			return errors.Wrapf(ErrDeadlineExpired, "deadline %s", deadline)
		}
		a, err := c.Get(db, strategyID)
		if err != nil {
			return err
		}
		if expectedEpochID != a.EpochID {
			return errors.Wrapf(ErrEpochMismatch, "want %d, current %d", expectedEpochID, a.EpochID)
		}
		price, err := currentPrice(a, now)
		if err != nil {
			return err
		}
		if price.Cmp(maxPayment) > 0 {
			return errors.Wrapf(ErrMaxPayment, "price %s, max %s", price, maxPayment)
		}
		assets, err := c.tokens.Balance(db, a.AssetToken, AssetsAccount(strategyID))
		if err != nil {
			return err
		}
		if assets.IsZero() {
			return errors.Wrapf(ErrEmptyAssets, "auction %d", strategyID)
		}

		if err := c.tokens.Move(db, a.AssetToken, AssetsAccount(strategyID), recipient, assets); err != nil {
			return errors.Wrap(err, "assets payout")
		}
		if err := c.splitPayment(db, strategyID, a, buyer, price); err != nil {
			return err
		}

		// Seed the next epoch from the realized price.
		next, err := price.MulDiv(coin.NewAmount(uint64(a.PriceMultiplierBps)), coin.NewAmount(Divisor))
		if err != nil {
			return err
		}
		if next.Cmp(a.MinInitPrice) < 0 {
			next = a.MinInitPrice
		}
		a.InitPrice = next
		a.StartTime = now
		a.EpochID++
		if err := auctionBucket.Put(db, auctionKey(strategyID), a); err != nil {
			return err
		}

		if price.IsZero() {
			purchaseMtc.WithLabelValues("free").Inc()
		} else {
			purchaseMtc.WithLabelValues("paid").Inc()
		}
		c.log.Debug("auction purchase",
			zap.Int64("strategy", strategyID),
			zap.Uint64("epoch", a.EpochID-1),
			zap.String("price", price.String()),
			zap.String("assets", assets.String()),
		)
		return nil
	})
}

// splitPayment pulls the sale price from the buyer, forwarding the
// configured bribe cut to the strategy's reward stream and the rest to
// the strategy receiver. Bribes too small to stream are routed to the
// receiver when the dust policy says so.
func (c *MarketController) splitPayment(db feemill.CacheableKVStore, strategyID int64, a *Auction, buyer feemill.Address, price coin.Amount) error {
	if price.IsZero() {
		return nil
	}
	conf, err := loadConf(db)
	if err != nil {
		return err
	}
	bribe, err := price.MulDiv(coin.NewAmount(uint64(conf.SplitBps)), coin.NewAmount(Divisor))
	if err != nil {
		return err
	}
	if !bribe.IsZero() && conf.SkipDustBribe {
		min, err := c.streams.MinEffectiveAmount(db)
		if err != nil {
			return err
		}
		if bribe.Cmp(min) < 0 {
			c.log.Debug("dust bribe routed to receiver",
				zap.Int64("strategy", strategyID),
				zap.String("bribe", bribe.String()),
			)
			bribe = coin.Amount{}
		}
	}
	if !bribe.IsZero() {
		if err := c.tokens.Move(db, a.PaymentToken, buyer, stream.RewardAccount(strategyID), bribe); err != nil {
			return errors.Wrap(err, "bribe")
		}
		if err := c.streams.NotifyReward(db, strategyID, a.PaymentToken, bribe); err != nil {
			return err
		}
	}
	rest, err := price.Sub(bribe)
	if err != nil {
		return err
	}
	if !rest.IsZero() {
		if err := c.tokens.Move(db, a.PaymentToken, buyer, a.Receiver, rest); err != nil {
			return errors.Wrap(err, "receiver payment")
		}
	}
	return nil
}

// currentPrice computes the linear decay price at the given time.
func currentPrice(a *Auction, now feemill.UnixTime) (coin.Amount, error) {
	elapsed := int64(now) - int64(a.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	period := int64(a.EpochPeriod)
	if elapsed >= period {
		return coin.Amount{}, nil
	}
	left := coin.NewAmount(uint64(period - elapsed))
	return a.InitPrice.MulDiv(left, coin.NewAmount(uint64(period)))
}
