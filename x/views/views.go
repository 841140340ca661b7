/*
Package views assembles read-only snapshots across the voting ledger,
the auctions and the reward streams for off-chain consumption. The
snapshots are pure projections of stored state and hold no invariants
of their own.
*/
package views

import (
	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/x/auction"
	"github.com/feemill/feemill/x/stream"
	"github.com/feemill/feemill/x/voting"
)

// Balancer reports token balances.
type Balancer interface {
	Balance(db feemill.ReadOnlyKVStore, ticker coin.Ticker, acct feemill.Address) (coin.Amount, error)
}

// StrategySnapshot is everything an off-chain consumer needs to decide
// on a purchase: the strategy's standing, what its auction holds and
// what it costs right now.
type StrategySnapshot struct {
	StrategyID int64       `json:"strategy_id"`
	Alive      bool        `json:"alive"`
	Weight     coin.Amount `json:"weight"`
	// Pending includes the share accrued since the last catch-up, so
	// it reflects a Distribute called right now.
	Pending coin.Amount `json:"pending"`
	EpochID uint64      `json:"epoch_id"`
	Price   coin.Amount `json:"price"`
	Assets  coin.Amount `json:"assets"`
}

// AccountSnapshot is a voter's standing within one strategy.
type AccountSnapshot struct {
	UsedWeight coin.Amount                 `json:"used_weight"`
	Committed  coin.Amount                 `json:"committed"`
	Earned     map[coin.Ticker]coin.Amount `json:"earned"`
}

// Reader aggregates the controllers' read paths.
type Reader struct {
	tokens  Balancer
	ledger  *voting.LedgerController
	market  *auction.MarketController
	streams *stream.Controller
}

// NewReader returns a snapshot reader over the given controllers.
func NewReader(tokens Balancer, ledger *voting.LedgerController, market *auction.MarketController, streams *stream.Controller) *Reader {
	return &Reader{
		tokens:  tokens,
		ledger:  ledger,
		market:  market,
		streams: streams,
	}
}

// Strategy returns the strategy's full standing.
func (r *Reader) Strategy(db feemill.ReadOnlyKVStore, strategyID int64) (*StrategySnapshot, error) {
	s, err := r.ledger.GetStrategy(db, strategyID)
	if err != nil {
		return nil, err
	}
	dist, err := r.ledger.GetDistribution(db)
	if err != nil {
		return nil, err
	}
	pending := s.Claimable
	if s.Alive && !s.Weight.IsZero() {
		delta, err := dist.GlobalIndex.Sub(s.SupplyIndex)
		if err != nil {
			return nil, err
		}
		share, err := s.Weight.MulDiv(delta, coin.Scale)
		if err != nil {
			return nil, err
		}
		if pending, err = pending.Add(share); err != nil {
			return nil, err
		}
	}
	a, err := r.market.Get(db, strategyID)
	if err != nil {
		return nil, err
	}
	price, err := r.market.Price(db, strategyID)
	if err != nil {
		return nil, err
	}
	assets, err := r.tokens.Balance(db, a.AssetToken, auction.AssetsAccount(strategyID))
	if err != nil {
		return nil, err
	}
	return &StrategySnapshot{
		StrategyID: strategyID,
		Alive:      s.Alive,
		Weight:     s.Weight,
		Pending:    pending,
		EpochID:    a.EpochID,
		Price:      price,
		Assets:     assets,
	}, nil
}

// Account returns the voter's standing within the strategy, including
// what every reward token would pay out right now.
func (r *Reader) Account(db feemill.ReadOnlyKVStore, voter feemill.Address, strategyID int64) (*AccountSnapshot, error) {
	rec, err := r.ledger.Votes(db, voter)
	if err != nil {
		return nil, err
	}
	committed := coin.Amount{}
	for _, entry := range rec.Votes {
		if entry.StrategyID == strategyID {
			committed = entry.Weight
			break
		}
	}
	tickers, err := r.streams.Tokens(db, strategyID)
	if err != nil {
		return nil, err
	}
	earned := make(map[coin.Ticker]coin.Amount, len(tickers))
	for _, ticker := range tickers {
		e, err := r.streams.Earned(db, strategyID, voter, ticker)
		if err != nil {
			return nil, err
		}
		earned[ticker] = e
	}
	return &AccountSnapshot{
		UsedWeight: rec.UsedWeight,
		Committed:  committed,
		Earned:     earned,
	}, nil
}
