package domain

import "errors"

var (
	// ErrKeyNotFound is returned by key-value backends when nothing is stored under a key.
	ErrKeyNotFound = errors.New("key not found")
	// ErrLearnerRequired is returned when an operation is attempted without a learner id.
	ErrLearnerRequired = errors.New("learner id required")
	// ErrChallengeNotFound indicates the challenge is not on today's board.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeNotClaimable indicates the challenge is incomplete or already claimed.
	ErrChallengeNotClaimable = errors.New("challenge not claimable")
)
