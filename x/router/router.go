/*
Package router composes "distribute pending revenue" and "buy from the
auction" into one all-or-nothing operation. An external caller cannot
otherwise read a freshly distributed balance and the matching price
without another purchase racing in between.
*/
package router

import (
	"go.uber.org/zap"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/x/auction"
)

// TokenMover is the fungible-asset ledger surface the escrow uses.
type TokenMover interface {
	Move(db feemill.KVStore, ticker coin.Ticker, src, dest feemill.Address, amount coin.Amount) error
	Balance(db feemill.ReadOnlyKVStore, ticker coin.Ticker, acct feemill.Address) (coin.Amount, error)
}

// Distributor pushes accrued revenue into auction balances.
// Implemented by the voting ledger controller.
type Distributor interface {
	Distribute(db feemill.CacheableKVStore, strategyID int64) error
	DistributeAll(db feemill.CacheableKVStore) error
}

// Market is the auction surface the router buys through. Implemented
// by the auction market controller.
type Market interface {
	Get(db feemill.ReadOnlyKVStore, strategyID int64) (*auction.Auction, error)
	Buy(db feemill.CacheableKVStore, strategyID int64, buyer, recipient feemill.Address, expectedEpochID uint64, deadline feemill.UnixTime, maxPayment coin.Amount) error
}

// Router is stateless; it only sequences calls into the other
// controllers under one cache wrap.
type Router struct {
	tokens TokenMover
	ledger Distributor
	market Market
	log    *zap.Logger
}

// NewRouter returns a router. A nil logger defaults to a no-op logger.
func NewRouter(tokens TokenMover, ledger Distributor, market Market, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		tokens: tokens,
		ledger: ledger,
		market: market,
		log:    log,
	}
}

// EscrowAccount returns the address temporarily holding a buyer's
// payment budget during a routed purchase. It is empty between calls.
func EscrowAccount() feemill.Address {
	return feemill.NewCondition("router", "escrow", nil).Address()
}

// DistributeAndBuy distributes the strategy's pending revenue and buys
// its whole auction balance in one atomic step. At most maxPayment is
// pulled from the caller; whatever the sale does not consume is
// refunded within the same call. Any failure rolls the whole
// composition back, escrow included.
func (r *Router) DistributeAndBuy(
	db feemill.CacheableKVStore,
	strategyID int64,
	caller feemill.Address,
	expectedEpochID uint64,
	deadline feemill.UnixTime,
	maxPayment coin.Amount,
) error {
	return r.buy(db, strategyID, caller, expectedEpochID, deadline, maxPayment, func(db feemill.CacheableKVStore) error {
		return r.ledger.Distribute(db, strategyID)
	})
}

// DistributeAllAndBuy distributes every registered strategy before
// buying from the target, guaranteeing the purchase sees a fully fresh
// view when one notification batch feeds many strategies.
func (r *Router) DistributeAllAndBuy(
	db feemill.CacheableKVStore,
	strategyID int64,
	caller feemill.Address,
	expectedEpochID uint64,
	deadline feemill.UnixTime,
	maxPayment coin.Amount,
) error {
	return r.buy(db, strategyID, caller, expectedEpochID, deadline, maxPayment, func(db feemill.CacheableKVStore) error {
		return r.ledger.DistributeAll(db)
	})
}

func (r *Router) buy(
	db feemill.CacheableKVStore,
	strategyID int64,
	caller feemill.Address,
	expectedEpochID uint64,
	deadline feemill.UnixTime,
	maxPayment coin.Amount,
	distribute func(feemill.CacheableKVStore) error,
) error {
	return feemill.Atomic(db, func(db feemill.CacheableKVStore) error {
		a, err := r.market.Get(db, strategyID)
		if err != nil {
			return err
		}
		escrow := EscrowAccount()
		if !maxPayment.IsZero() {
			if err := r.tokens.Move(db, a.PaymentToken, caller, escrow, maxPayment); err != nil {
				return errors.Wrap(err, "escrow")
			}
		}

		if err := distribute(db); err != nil {
			return err
		}
		if err := r.market.Buy(db, strategyID, escrow, caller, expectedEpochID, deadline, maxPayment); err != nil {
			return err
		}

		// The sale consumed exactly the price; everything left in
		// escrow goes back to the caller.
		rest, err := r.tokens.Balance(db, a.PaymentToken, escrow)
		if err != nil {
			return err
		}
		if !rest.IsZero() {
			if err := r.tokens.Move(db, a.PaymentToken, escrow, caller, rest); err != nil {
				return errors.Wrap(err, "refund")
			}
		}
		r.log.Debug("routed purchase",
			zap.Int64("strategy", strategyID),
			zap.String("refund", rest.String()),
		)
		return nil
	})
}
