package service

import "errors"

// User-visible election rule violations. Chain integrity failures are a
// separate type owned by the ledger package.
var (
	ErrPollClosed       = errors.New("polling is closed")
	ErrDuplicateVote    = errors.New("voter has already cast a vote")
	ErrUnknownCandidate = errors.New("candidate is not registered")
	ErrPollOpen         = errors.New("candidate roster is locked while polling is open")
)
