package auction

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/feemilltest"
	"github.com/feemill/feemill/feemilltest/assert"
	"github.com/feemill/feemill/gconf"
	"github.com/feemill/feemill/store"
	"github.com/feemill/feemill/x/stream"
)

const (
	payTicker   = coin.Ticker("PAY")
	assetTicker = coin.Ticker("FEE")
)

type auctionTest struct {
	market   *MarketController
	streams  *stream.Controller
	db       feemill.CacheableKVStore
	clock    *clock.Mock
	ledger   feemilltest.Ledger
	receiver feemill.Address
}

func newAuctionTest(t testing.TB) *auctionTest {
	t.Helper()
	db := store.MemStore()
	mock := clock.NewMock()
	mock.Add(time.Hour)

	assert.Nil(t, gconf.Save(db, "stream", &stream.Configuration{
		Duration: feemill.AsUnixDuration(100 * time.Second),
	}))
	assert.Nil(t, gconf.Save(db, "auction", &Configuration{
		SplitBps: 1000,
	}))

	var ledger feemilltest.Ledger
	streams := stream.NewController(ledger, mock, zap.NewNop())
	market := NewMarketController(ledger, streams, mock, zap.NewNop())
	fix := &auctionTest{
		market:   market,
		streams:  streams,
		db:       db,
		clock:    mock,
		ledger:   ledger,
		receiver: feemilltest.NewAddress(),
	}

	assert.Nil(t, market.Register(db, 1, payTicker, assetTicker, fix.receiver,
		feemill.AsUnixDuration(3600*time.Second), 20000, coin.NewAmount(100)))
	assert.Nil(t, streams.AddToken(db, 1, payTicker))
	return fix
}

func (f *auctionTest) fund(t testing.TB, assets uint64) {
	t.Helper()
	assert.Nil(t, f.ledger.Credit(f.db, assetTicker, AssetsAccount(1), coin.NewAmount(assets)))
}

func (f *auctionTest) deadline() feemill.UnixTime {
	return feemill.AsUnixTime(f.clock.Now().Add(time.Hour))
}

func TestPriceDecaysLinearly(t *testing.T) {
	f := newAuctionTest(t)

	price, err := f.market.Price(f.db, 1)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(100), price)

	f.clock.Add(1800 * time.Second)
	price, err = f.market.Price(f.db, 1)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(50), price)

	f.clock.Add(1800 * time.Second)
	price, err = f.market.Price(f.db, 1)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(0), price)

	// Past the period the price stays pinned at zero.
	f.clock.Add(5000 * time.Second)
	price, err = f.market.Price(f.db, 1)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(0), price)
}

func TestPriceIsNonIncreasing(t *testing.T) {
	f := newAuctionTest(t)

	prev, err := f.market.Price(f.db, 1)
	assert.Nil(t, err)
	for i := 0; i < 10; i++ {
		f.clock.Add(500 * time.Second)
		price, err := f.market.Price(f.db, 1)
		assert.Nil(t, err)
		if price.Cmp(prev) > 0 {
			t.Fatalf("price increased from %s to %s", prev, price)
		}
		prev = price
	}
	assert.Equal(t, coin.NewAmount(0), prev)
}

func TestBuySplitsPayment(t *testing.T) {
	f := newAuctionTest(t)
	buyer := feemilltest.NewAddress()
	f.fund(t, 700)
	assert.Nil(t, f.ledger.Credit(f.db, payTicker, buyer, coin.NewAmount(100)))

	f.clock.Add(1800 * time.Second)
	assert.Nil(t, f.market.Buy(f.db, 1, buyer, buyer, 1, f.deadline(), coin.NewAmount(50)))

	got, err := f.ledger.Balance(f.db, assetTicker, buyer)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(700), got)

	// Price 50 splits 10% to the stream, the rest to the receiver.
	bribe, err := f.ledger.Balance(f.db, payTicker, stream.RewardAccount(1))
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(5), bribe)

	rest, err := f.ledger.Balance(f.db, payTicker, f.receiver)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(45), rest)

	left, err := f.ledger.Balance(f.db, payTicker, buyer)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(50), left)

	a, err := f.market.Get(f.db, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), a.EpochID)
	// Reseed: max(50 * 2, minInitPrice 100) = 100.
	assert.Equal(t, coin.NewAmount(100), a.InitPrice)
	assert.Equal(t, feemill.AsUnixTime(f.clock.Now()), a.StartTime)
}

func TestBuyGuards(t *testing.T) {
	cases := map[string]struct {
		fund       uint64
		epoch      uint64
		advance    time.Duration
		deadline   time.Duration
		maxPayment uint64
		wantErr    *errors.Error
	}{
		"deadline expired": {
			fund: 100, epoch: 1, advance: time.Hour, deadline: -time.Minute,
			maxPayment: 100, wantErr: ErrDeadlineExpired,
		},
		"epoch mismatch older": {
			fund: 100, epoch: 0, deadline: time.Hour,
			maxPayment: 100, wantErr: ErrEpochMismatch,
		},
		"epoch mismatch newer": {
			fund: 100, epoch: 2, deadline: time.Hour,
			maxPayment: 100, wantErr: ErrEpochMismatch,
		},
		"max payment exceeded": {
			fund: 100, epoch: 1, deadline: time.Hour,
			maxPayment: 99, wantErr: ErrMaxPayment,
		},
		"empty assets": {
			fund: 0, epoch: 1, deadline: time.Hour,
			maxPayment: 100, wantErr: ErrEmptyAssets,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			f := newAuctionTest(t)
			buyer := feemilltest.NewAddress()
			if tc.fund > 0 {
				f.fund(t, tc.fund)
			}
			assert.Nil(t, f.ledger.Credit(f.db, payTicker, buyer, coin.NewAmount(1000)))
			f.clock.Add(tc.advance)
			deadline := feemill.AsUnixTime(f.clock.Now().Add(tc.deadline))

			err := f.market.Buy(f.db, 1, buyer, buyer, tc.epoch, deadline, coin.NewAmount(tc.maxPayment))
			assert.IsErr(t, tc.wantErr, err)
		})
	}
}

func TestFreePurchaseAfterExpiry(t *testing.T) {
	f := newAuctionTest(t)
	buyer := feemilltest.NewAddress()
	f.fund(t, 300)

	// Price decayed to zero; maxPayment zero must still succeed.
	f.clock.Add(4000 * time.Second)
	assert.Nil(t, f.market.Buy(f.db, 1, buyer, buyer, 1, f.deadline(), coin.NewAmount(0)))

	got, err := f.ledger.Balance(f.db, assetTicker, buyer)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(300), got)

	a, err := f.market.Get(f.db, 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(2), a.EpochID)
	// A free sale reseeds at the floor.
	assert.Equal(t, coin.NewAmount(100), a.InitPrice)
}

func TestBuyReplayFails(t *testing.T) {
	f := newAuctionTest(t)
	buyer := feemilltest.NewAddress()
	f.fund(t, 100)
	assert.Nil(t, f.ledger.Credit(f.db, payTicker, buyer, coin.NewAmount(1000)))

	assert.Nil(t, f.market.Buy(f.db, 1, buyer, buyer, 1, f.deadline(), coin.NewAmount(100)))

	// Same epoch id again observes the advanced epoch.
	f.fund(t, 100)
	err := f.market.Buy(f.db, 1, buyer, buyer, 1, f.deadline(), coin.NewAmount(100))
	assert.IsErr(t, ErrEpochMismatch, err)
}

func TestDustBribeRoutedToReceiver(t *testing.T) {
	f := newAuctionTest(t)
	buyer := feemilltest.NewAddress()
	assert.Nil(t, gconf.Save(f.db, "auction", &Configuration{
		SplitBps:      1000,
		SkipDustBribe: true,
	}))
	f.fund(t, 100)
	assert.Nil(t, f.ledger.Credit(f.db, payTicker, buyer, coin.NewAmount(100)))

	// Price 50 makes a bribe of 5: below the 100 unit minimum the
	// stream can turn into a rate, so the receiver gets it all.
	f.clock.Add(1800 * time.Second)
	assert.Nil(t, f.market.Buy(f.db, 1, buyer, buyer, 1, f.deadline(), coin.NewAmount(50)))

	bribe, err := f.ledger.Balance(f.db, payTicker, stream.RewardAccount(1))
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(0), bribe)

	rest, err := f.ledger.Balance(f.db, payTicker, f.receiver)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewAmount(50), rest)
}

func TestRegisterTwice(t *testing.T) {
	f := newAuctionTest(t)
	err := f.market.Register(f.db, 1, payTicker, assetTicker, f.receiver,
		feemill.AsUnixDuration(time.Hour), 20000, coin.NewAmount(100))
	assert.IsErr(t, errors.ErrDuplicate, err)
}

func TestConfigurationBoundsSplit(t *testing.T) {
	conf := Configuration{SplitBps: MaxSplitBps + 1}
	if err := conf.Validate(); !errors.ErrState.Is(err) {
		t.Fatalf("want state error, got %+v", err)
	}
	conf.SplitBps = MaxSplitBps
	assert.Nil(t, conf.Validate())
}
