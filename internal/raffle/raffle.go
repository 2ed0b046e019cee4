// Package raffle implements the round state machine: entry acceptance,
// upkeep evaluation, randomness-request submission and the fulfillment
// handler that settles the round. All state lives in one exclusively-owned
// Raffle value; every operation runs atomically under its mutex.
package raffle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the round lifecycle phase.
type State string

const (
	// StateOpen accepts entries.
	StateOpen State = "OPEN"
	// StateCalculating means a randomness request is outstanding and the
	// ledger is frozen until fulfillment.
	StateCalculating State = "CALCULATING"
)

// NumWords is the number of random words requested per round. The winner
// index needs exactly one.
const NumWords uint32 = 1

// Config carries the immutable round parameters. It is validated once in
// New and never mutated afterwards.
type Config struct {
	// EntranceFee is the minimum payment per entry, in the smallest
	// currency unit.
	EntranceFee uint64
	// Interval is the minimum round duration before upkeep may fire.
	Interval time.Duration
	// KeyHash identifies the randomness source at the coordinator.
	KeyHash string
	// SubscriptionID is the funded coordinator subscription billed for
	// requests.
	SubscriptionID uint64
	// CallbackGasLimit caps the compute budget of the fulfillment callback.
	CallbackGasLimit uint32
	// RequestConfirmations is the confirmation depth the coordinator waits
	// for before responding.
	RequestConfirmations uint16
}

// RandomnessRequest is the fixed-parameter request submitted to the
// coordinator when a round closes.
type RandomnessRequest struct {
	KeyHash              string
	SubscriptionID       uint64
	RequestConfirmations uint16
	CallbackGasLimit     uint32
	NumWords             uint32
}

// Coordinator is the outbound oracle boundary. Implementations assign a
// request id and later deliver exactly one fulfillment for it, or none.
type Coordinator interface {
	RequestRandomWords(ctx context.Context, req RandomnessRequest) (string, error)
}

// Bank custodies the pooled entrance fees. Deposit moves an entry payment
// into escrow; Payout moves the whole pot from escrow to the winner.
type Bank interface {
	Deposit(ctx context.Context, account string, amount uint64) error
	Payout(ctx context.Context, account string, amount uint64) error
}

// UpkeepStatus is the read-only snapshot behind the upkeep predicate.
type UpkeepStatus struct {
	Needed   bool          `json:"needed"`
	State    State         `json:"state"`
	Players  int           `json:"players"`
	Pot      uint64        `json:"pot"`
	Elapsed  time.Duration `json:"elapsed"`
	Interval time.Duration `json:"interval"`
}

// Settlement describes one completed round, produced by the fulfillment
// handler after a successful payout.
type Settlement struct {
	Round     uint64
	RequestID string
	Winner    string
	Pot       uint64
	Players   int
	StartedAt time.Time
	SettledAt time.Time
}

// Raffle owns all mutable round state. Operations are serialized by the
// mutex; each either completes fully or leaves the state untouched.
type Raffle struct {
	cfg         Config
	coordinator Coordinator
	bank        Bank

	mu             sync.Mutex
	state          State
	players        []string
	pot            uint64
	lastRoundStart time.Time
	recentWinner   string
	pendingRequest string
	settledRounds  uint64

	now func() time.Time
}

// Option customizes a Raffle at construction.
type Option func(*Raffle)

// WithClock replaces the wall clock, letting tests control elapsed time.
func WithClock(now func() time.Time) Option {
	return func(r *Raffle) {
		if now != nil {
			r.now = now
		}
	}
}

// New validates the round parameters and oracle linkage and returns a
// Raffle in the OPEN state with the round timer started.
func New(cfg Config, coordinator Coordinator, bank Bank, opts ...Option) (*Raffle, error) {
	if coordinator == nil {
		return nil, errors.New("raffle: coordinator is required")
	}
	if bank == nil {
		return nil, errors.New("raffle: bank is required")
	}
	if cfg.KeyHash == "" {
		return nil, errors.New("raffle: key hash is required")
	}
	if cfg.SubscriptionID == 0 {
		return nil, errors.New("raffle: subscription id is required")
	}
	if cfg.EntranceFee == 0 {
		return nil, errors.New("raffle: entrance fee must be positive")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("raffle: interval must be positive")
	}

	r := &Raffle{
		cfg:         cfg,
		coordinator: coordinator,
		bank:        bank,
		state:       StateOpen,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastRoundStart = r.now()
	return r, nil
}

// Enter records one weighted chance for participant. The payment must meet
// the entrance fee; overpayment is retained, not refunded. Entries are
// rejected while a randomness request is outstanding.
func (r *Raffle) Enter(ctx context.Context, participant string, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateOpen {
		return ErrRoundClosed
	}
	if amount < r.cfg.EntranceFee {
		return ErrInsufficientPayment
	}
	if err := r.bank.Deposit(ctx, participant, amount); err != nil {
		return fmt.Errorf("deposit entrance fee: %w", err)
	}
	r.players = append(r.players, participant)
	r.pot += amount
	return nil
}

// CheckUpkeep reports whether the round may be finalized. Read-only; the
// predicate is recomputed again inside PerformUpkeep before any transition.
func (r *Raffle) CheckUpkeep() UpkeepStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upkeepStatus()
}

// upkeepStatus requires r.mu to be held.
func (r *Raffle) upkeepStatus() UpkeepStatus {
	elapsed := r.now().Sub(r.lastRoundStart)
	s := UpkeepStatus{
		State:    r.state,
		Players:  len(r.players),
		Pot:      r.pot,
		Elapsed:  elapsed,
		Interval: r.cfg.Interval,
	}
	isOpen := r.state == StateOpen
	timePassed := elapsed >= r.cfg.Interval
	hasPlayers := len(r.players) > 0
	hasBalance := r.pot > 0
	s.Needed = isOpen && timePassed && hasPlayers && hasBalance
	return s
}

// PerformUpkeep re-validates the upkeep predicate and, when it holds,
// closes the round and submits a one-word randomness request built from
// the immutable config. The state flips to CALCULATING before the
// coordinator call so a re-entrant trigger observes a closed round; a
// failed submission undoes the flip.
func (r *Raffle) PerformUpkeep(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := r.upkeepStatus()
	if !status.Needed {
		return "", &UpkeepNotNeededError{
			State:   status.State,
			Players: status.Players,
			Pot:     status.Pot,
			Elapsed: status.Elapsed,
		}
	}

	r.state = StateCalculating
	requestID, err := r.coordinator.RequestRandomWords(ctx, RandomnessRequest{
		KeyHash:              r.cfg.KeyHash,
		SubscriptionID:       r.cfg.SubscriptionID,
		RequestConfirmations: r.cfg.RequestConfirmations,
		CallbackGasLimit:     r.cfg.CallbackGasLimit,
		NumWords:             NumWords,
	})
	if err != nil {
		r.state = StateOpen
		return "", fmt.Errorf("request random words: %w", err)
	}
	r.pendingRequest = requestID
	return requestID, nil
}

// rollback captures the fields FulfillRandomWords mutates.
type rollback struct {
	state          State
	players        []string
	pot            uint64
	lastRoundStart time.Time
	recentWinner   string
	pendingRequest string
	settledRounds  uint64
}

// FulfillRandomWords consumes the coordinator's response: it selects the
// winner by words[0] mod ledger size, resets the round and pays out the
// whole pot. All internal effects are applied before the external payout
// transfer; if the transfer fails everything is rolled back and the round
// stays CALCULATING so the fulfillment can be re-delivered.
//
// Callers must ensure only the coordinator identity reaches this method.
func (r *Raffle) FulfillRandomWords(ctx context.Context, requestID string, words []uint64) (Settlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCalculating || requestID == "" || requestID != r.pendingRequest {
		return Settlement{}, ErrUnknownRequest
	}
	if len(words) == 0 {
		return Settlement{}, errors.New("raffle: fulfillment carried no random words")
	}
	n := uint64(len(r.players))
	if n == 0 {
		// Unreachable when upkeep guarded the transition; treat as fatal.
		return Settlement{}, ErrNoPlayers
	}
	winner := r.players[words[0]%n]

	settledAt := r.now()
	settlement := Settlement{
		Round:     r.settledRounds + 1,
		RequestID: requestID,
		Winner:    winner,
		Pot:       r.pot,
		Players:   int(n),
		StartedAt: r.lastRoundStart,
		SettledAt: settledAt,
	}

	prev := rollback{
		state:          r.state,
		players:        r.players,
		pot:            r.pot,
		lastRoundStart: r.lastRoundStart,
		recentWinner:   r.recentWinner,
		pendingRequest: r.pendingRequest,
		settledRounds:  r.settledRounds,
	}

	// Effects before the external transfer.
	r.recentWinner = winner
	r.state = StateOpen
	r.players = nil
	r.pot = 0
	r.lastRoundStart = settledAt
	r.pendingRequest = ""
	r.settledRounds++

	if err := r.bank.Payout(ctx, winner, settlement.Pot); err != nil {
		r.state = prev.state
		r.players = prev.players
		r.pot = prev.pot
		r.lastRoundStart = prev.lastRoundStart
		r.recentWinner = prev.recentWinner
		r.pendingRequest = prev.pendingRequest
		r.settledRounds = prev.settledRounds
		return Settlement{}, &PayoutFailedError{Winner: winner, Amount: settlement.Pot, Err: err}
	}
	return settlement, nil
}

// Config returns the immutable round parameters.
func (r *Raffle) Config() Config { return r.cfg }

// State returns the current lifecycle phase.
func (r *Raffle) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Player returns the entrant at the given ledger index.
func (r *Raffle) Player(index int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.players) {
		return "", false
	}
	return r.players[index], true
}

// Players returns the number of entries in the current round.
func (r *Raffle) Players() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Pot returns the pooled balance of the current round.
func (r *Raffle) Pot() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pot
}

// RecentWinner returns the most recently paid winner, if any.
func (r *Raffle) RecentWinner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recentWinner
}

// LastRoundStart returns the timestamp of the last round reset.
func (r *Raffle) LastRoundStart() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRoundStart
}

// PendingRequest returns the outstanding request id, empty while OPEN.
func (r *Raffle) PendingRequest() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingRequest
}

// SettledRounds returns how many rounds have been paid out.
func (r *Raffle) SettledRounds() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settledRounds
}
