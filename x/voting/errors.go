package voting

import "github.com/feemill/feemill/errors"

var (
	// ErrAlreadyVoted is returned when an account votes twice within
	// one epoch.
	ErrAlreadyVoted = errors.Register(1000, "already voted this epoch")

	// ErrAlreadyReset is returned when an account resets twice within
	// one epoch.
	ErrAlreadyReset = errors.Register(1001, "already reset this epoch")

	// ErrNoWeight is returned when an account with no available
	// voting weight tries to vote.
	ErrNoWeight = errors.Register(1002, "no voting weight available")

	// ErrDuplicateTarget is returned when one vote call names the
	// same strategy twice.
	ErrDuplicateTarget = errors.Register(1003, "duplicate vote target")

	// ErrZeroAllocation is returned when proportional normalization
	// assigns zero weight to any target.
	ErrZeroAllocation = errors.Register(1004, "zero weight after normalization")

	// ErrDeadStrategy is returned when killing a strategy that is
	// already dead.
	ErrDeadStrategy = errors.Register(1005, "strategy already dead")
)
