// Package feemilltest provides in-memory doubles and helpers for
// testing feemill extensions.
package feemilltest

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/feemill/feemill"
	"github.com/feemill/feemill/coin"
)

var condCnt uint64

// NewCondition returns a new, unique condition. Each call returns a
// different value.
func NewCondition() feemill.Condition {
	n := atomic.AddUint64(&condCnt, 1)
	return feemill.NewCondition("test", "cond", SequenceID(n))
}

// NewAddress returns a new, unique address. Each call returns a
// different value.
func NewAddress() feemill.Address {
	return NewCondition().Address()
}

// SequenceID returns an ID encoded the way sequence generated
// identifiers are.
func SequenceID(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// Powers is a static voting power source keyed by address string.
type Powers map[string]coin.Amount

// VotingPower returns the configured power of the account, zero when
// the account is unknown.
func (p Powers) VotingPower(db feemill.ReadOnlyKVStore, account feemill.Address) (coin.Amount, error) {
	return p[account.String()], nil
}
