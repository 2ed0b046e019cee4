package raffle

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientPayment rejects entries paying less than the entrance fee.
	ErrInsufficientPayment = errors.New("raffle: payment below entrance fee")
	// ErrRoundClosed rejects entries while a randomness request is outstanding.
	ErrRoundClosed = errors.New("raffle: round is calculating, entries are closed")
	// ErrUnknownRequest rejects fulfillments whose request id does not match
	// the pending request.
	ErrUnknownRequest = errors.New("raffle: fulfillment does not match the pending request")
	// ErrNoPlayers signals a broken invariant: a fulfillment arrived for a
	// round with an empty ledger.
	ErrNoPlayers = errors.New("raffle: no players recorded for the pending round")
)

// UpkeepNotNeededError reports a rejected trigger together with the
// snapshot that failed the predicate, so callers can tell which condition
// was not met.
type UpkeepNotNeededError struct {
	State   State
	Players int
	Pot     uint64
	Elapsed time.Duration
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("raffle: upkeep not needed (state=%s players=%d pot=%d elapsed=%s)",
		e.State, e.Players, e.Pot, e.Elapsed)
}

// PayoutFailedError wraps a failed winner transfer. The round is left
// CALCULATING with its ledger intact so the fulfillment can be re-delivered.
type PayoutFailedError struct {
	Winner string
	Amount uint64
	Err    error
}

func (e *PayoutFailedError) Error() string {
	return fmt.Sprintf("raffle: payout of %d to %s failed: %v", e.Amount, e.Winner, e.Err)
}

func (e *PayoutFailedError) Unwrap() error { return e.Err }
