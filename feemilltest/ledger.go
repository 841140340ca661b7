package feemilltest

import (
	"encoding/json"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
	"github.com/feemill/feemill/errors"
	"github.com/feemill/feemill/orm"
)

// Ledger is a minimal store-backed token ledger. Balances live in the
// store, so transfers made inside a cache wrap are rolled back
// together with everything else.
type Ledger struct{}

type balance struct {
	Amount coin.Amount `json:"amount"`
}

var _ orm.Model = (*balance)(nil)

func (b *balance) Validate() error            { return nil }
func (b *balance) Marshal() ([]byte, error)   { return json.Marshal(b) }
func (b *balance) Unmarshal(raw []byte) error { return json.Unmarshal(raw, b) }

var balances = orm.NewModelBucket("testledger")

func balanceKey(ticker coin.Ticker, acct feemill.Address) []byte {
	return append([]byte(ticker+"/"), acct...)
}

// Credit mints the given amount onto the account.
func (Ledger) Credit(db feemill.KVStore, ticker coin.Ticker, dest feemill.Address, amount coin.Amount) error {
	b, err := loadBalance(db, ticker, dest)
	if err != nil {
		return err
	}
	if b.Amount, err = b.Amount.Add(amount); err != nil {
		return err
	}
	return balances.Put(db, balanceKey(ticker, dest), &b)
}

// Move transfers the amount between the accounts. It fails with
// ErrAmount when the source balance is insufficient.
func (Ledger) Move(db feemill.KVStore, ticker coin.Ticker, src, dest feemill.Address, amount coin.Amount) error {
	from, err := loadBalance(db, ticker, src)
	if err != nil {
		return err
	}
	if from.Amount.Cmp(amount) < 0 {
		return errors.Wrapf(errors.ErrAmount, "balance %s, need %s", from.Amount, amount)
	}
	if from.Amount, err = from.Amount.Sub(amount); err != nil {
		return err
	}
	if err := balances.Put(db, balanceKey(ticker, src), &from); err != nil {
		return err
	}
	to, err := loadBalance(db, ticker, dest)
	if err != nil {
		return err
	}
	if to.Amount, err = to.Amount.Add(amount); err != nil {
		return err
	}
	return balances.Put(db, balanceKey(ticker, dest), &to)
}

// Balance returns the account balance, zero when never credited.
func (Ledger) Balance(db feemill.ReadOnlyKVStore, ticker coin.Ticker, acct feemill.Address) (coin.Amount, error) {
	b, err := loadBalance(db, ticker, acct)
	return b.Amount, err
}

func loadBalance(db feemill.ReadOnlyKVStore, ticker coin.Ticker, acct feemill.Address) (balance, error) {
	var b balance
	if err := balances.One(db, balanceKey(ticker, acct), &b); err != nil {
		if errors.ErrNotFound.Is(err) {
			return balance{}, nil
		}
		return balance{}, err
	}
	return b, nil
}
