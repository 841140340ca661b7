package coin

import (
	"regexp"

	"github.com/feemill/feemill/errors"
)

// isTicker ensures valid token symbols.
var isTicker = regexp.MustCompile(`^[A-Z]{3,10}$`).MatchString

// Ticker is a token symbol, the identity under which an external
// fungible-asset ledger tracks balances.
type Ticker string

// Validate returns an error if the ticker is not well formed.
func (t Ticker) Validate() error {
	if !isTicker(string(t)) {
		return errors.Wrapf(errors.ErrInput, "invalid ticker: %q", string(t))
	}
	return nil
}

// Equals returns true when both tickers name the same token.
func (t Ticker) Equals(other Ticker) bool {
	return t == other
}

func (t Ticker) String() string {
	return string(t)
}
