/*
Package coin provides the value types used for token accounting: an
unsigned 256-bit Amount with checked arithmetic and the Ticker token
symbol. Amounts never go negative; subtraction below zero is an
overflow error, which is how the ledger keeps every balance and weight
underflow-free.
*/
package coin

import (
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/feemill/feemill/errors"
)

// Scale is the fixed-point multiplier used by the two index
// accumulators (global revenue index and reward-per-token). One unit of
// index equals 1/Scale of a token unit per unit of weight.
var Scale = NewAmount(1_000_000_000_000_000_000)

// Amount is an unsigned 256-bit integer quantity of a token, or of
// voting weight. The zero value is a valid zero amount. Amount has
// value semantics: arithmetic returns new values and never mutates the
// receiver.
type Amount struct {
	value uint256.Int
}

// NewAmount returns the amount representing the given value.
func NewAmount(v uint64) Amount {
	var a Amount
	a.value.SetUint64(v)
	return a
}

// ParseAmount reads a base-10 string representation.
func ParseAmount(dec string) (Amount, error) {
	var a Amount
	if err := a.value.SetFromDecimal(dec); err != nil {
		return Amount{}, errors.Wrapf(errors.ErrAmount, "%q: %s", dec, err)
	}
	return a, nil
}

// MustParseAmount is ParseAmount that panics on failure. Use only for
// constants.
func MustParseAmount(dec string) Amount {
	a, err := ParseAmount(dec)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b, or ErrOverflow when the sum exceeds 256 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	var sum Amount
	if _, overflow := sum.value.AddOverflow(&a.value, &b.value); overflow {
		return Amount{}, errors.Wrap(errors.ErrOverflow, "amount addition")
	}
	return sum, nil
}

// Sub returns a-b, or ErrOverflow when b is greater than a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var diff Amount
	if _, underflow := diff.value.SubOverflow(&a.value, &b.value); underflow {
		return Amount{}, errors.Wrap(errors.ErrOverflow, "amount subtraction below zero")
	}
	return diff, nil
}

// Mul returns a*b, or ErrOverflow when the product exceeds 256 bits.
func (a Amount) Mul(b Amount) (Amount, error) {
	var prod Amount
	if _, overflow := prod.value.MulOverflow(&a.value, &b.value); overflow {
		return Amount{}, errors.Wrap(errors.ErrOverflow, "amount multiplication")
	}
	return prod, nil
}

// Div returns a/b truncated. Division by zero is an error; callers are
// expected to branch on a zero denominator before dividing.
func (a Amount) Div(b Amount) (Amount, error) {
	if b.IsZero() {
		return Amount{}, errors.Wrap(errors.ErrAmount, "division by zero")
	}
	var quot Amount
	quot.value.Div(&a.value, &b.value)
	return quot, nil
}

// MulDiv returns a*mul/div with the intermediate product held in full
// width, so a*mul may exceed 256 bits as long as the final result fits.
func (a Amount) MulDiv(mul, div Amount) (Amount, error) {
	if div.IsZero() {
		return Amount{}, errors.Wrap(errors.ErrAmount, "division by zero")
	}
	var res Amount
	if _, overflow := res.value.MulDivOverflow(&a.value, &mul.value, &div.value); overflow {
		return Amount{}, errors.Wrap(errors.ErrOverflow, "muldiv result")
	}
	return res, nil
}

// Cmp returns -1, 0 or 1 depending on whether a is smaller, equal or
// greater than b.
func (a Amount) Cmp(b Amount) int {
	return a.value.Cmp(&b.value)
}

// Equals returns true when both amounts represent the same value.
func (a Amount) Equals(b Amount) bool {
	return a.value.Eq(&b.value)
}

// IsZero returns true for the zero amount.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// IsPositive returns true for any non-zero amount.
func (a Amount) IsPositive() bool {
	return !a.value.IsZero()
}

// Uint64 returns the low 64 bits. Use only when the amount is known to
// fit, for example in tests.
func (a Amount) Uint64() uint64 {
	return a.value.Uint64()
}

// String returns the base-10 representation.
func (a Amount) String() string {
	return a.value.Dec()
}

// MarshalJSON encodes as a base-10 string, so the full 256-bit range
// survives any JSON number precision limits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value.Dec())
}

// UnmarshalJSON accepts both a base-10 string and a plain number.
func (a *Amount) UnmarshalJSON(raw []byte) error {
	var repr string
	if err := json.Unmarshal(raw, &repr); err != nil {
		var num uint64
		if err := json.Unmarshal(raw, &num); err != nil {
			return errors.Wrap(errors.ErrAmount, "amount must be a decimal string or number")
		}
		a.value.SetUint64(num)
		return nil
	}
	parsed, err := ParseAmount(repr)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
