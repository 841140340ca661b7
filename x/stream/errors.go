package stream

import "github.com/feemill/feemill/errors"

var (
	// ErrTokenExists is returned when registering a reward token that
	// is already part of the strategy's stream group.
	ErrTokenExists = errors.Register(1040, "reward token already registered")
)
