package auction

import "github.com/feemill/feemill/errors"

var (
	// ErrDeadlineExpired is returned when a purchase arrives after
	// the deadline the buyer attached to it.
	ErrDeadlineExpired = errors.Register(1020, "deadline expired")

	// ErrEpochMismatch is returned when the epoch a buyer computed
	// their price against is no longer the current one. Another
	// purchase completed first; retry with a fresh view.
	ErrEpochMismatch = errors.Register(1021, "auction epoch mismatch")

	// ErrMaxPayment is returned when the current price is above what
	// the buyer is willing to pay.
	ErrMaxPayment = errors.Register(1022, "price exceeds max payment")

	// ErrEmptyAssets is returned when there is nothing to sell.
	ErrEmptyAssets = errors.Register(1023, "no assets to sell")
)
