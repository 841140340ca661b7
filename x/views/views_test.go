package views

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/feemilltest"
	"github.com/feemill/feemill/feemilltest/assert"
	"github.com/feemill/feemill/gconf"
	"github.com/feemill/feemill/store"
	"github.com/feemill/feemill/x/auction"
	"github.com/feemill/feemill/x/stream"
	"github.com/feemill/feemill/x/voting"
)

func TestSnapshots(t *testing.T) {
	db := store.MemStore()
	mock := clock.NewMock()
	mock.Add(time.Hour)

	sink := feemilltest.NewAddress()
	assert.Nil(t, gconf.Save(db, "voting", &voting.Configuration{
		EpochLength:  feemill.AsUnixDuration(7 * 24 * time.Hour),
		Revenue:      coin.Ticker("FEE"),
		FallbackSink: sink,
	}))
	assert.Nil(t, gconf.Save(db, "stream", &stream.Configuration{
		Duration: feemill.AsUnixDuration(100 * time.Second),
	}))
	assert.Nil(t, gconf.Save(db, "auction", &auction.Configuration{
		SplitBps: 1000,
	}))

	var ledger feemilltest.Ledger
	powers := feemilltest.Powers{}
	streams := stream.NewController(ledger, mock, zap.NewNop())
	market := auction.NewMarketController(ledger, streams, mock, zap.NewNop())
	ledgerCtl := voting.NewLedgerController(ledger, powers, streams, market, mock, zap.NewNop())
	reader := NewReader(ledger, ledgerCtl, market, streams)

	id, err := ledgerCtl.RegisterStrategy(db, coin.Ticker("PAY"), feemilltest.NewAddress(),
		feemill.AsUnixDuration(time.Hour), 20000, coin.NewAmount(100))
	assert.Nil(t, err)

	alice := feemilltest.NewAddress()
	powers[alice.String()] = coin.NewAmount(100)
	assert.Nil(t, ledgerCtl.Vote(db, alice, []voting.Allocation{{StrategyID: id, Weight: coin.NewAmount(1)}}))

	source := feemilltest.NewAddress()
	assert.Nil(t, ledger.Credit(db, coin.Ticker("FEE"), source, coin.NewAmount(500)))
	assert.Nil(t, ledgerCtl.NotifyRevenue(db, source, coin.NewAmount(500)))

	// The snapshot reflects revenue not yet pulled by Distribute.
	snap, err := reader.Strategy(db, id)
	assert.Nil(t, err)
	assert.Equal(t, true, snap.Alive)
	assert.Equal(t, coin.NewAmount(100), snap.Weight)
	assert.Equal(t, coin.NewAmount(500), snap.Pending)
	assert.Equal(t, uint64(1), snap.EpochID)
	assert.Equal(t, coin.NewAmount(100), snap.Price)
	assert.Equal(t, coin.NewAmount(0), snap.Assets)

	assert.Nil(t, ledgerCtl.Distribute(db, id))
	snap, err = reader.Strategy(db, id)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(0), snap.Pending)
	assert.Equal(t, coin.NewAmount(500), snap.Assets)

	acct, err := reader.Account(db, alice, id)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(100), acct.UsedWeight)
	assert.Equal(t, coin.NewAmount(100), acct.Committed)
	assert.Equal(t, coin.NewAmount(0), acct.Earned[coin.Ticker("PAY")])
}
