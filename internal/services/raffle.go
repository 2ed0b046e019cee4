// Package services orchestrates the raffle core: it fans side effects out
// to Kafka and the stores, and hosts the automation keeper that triggers
// upkeep.
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rakhargo/LotteryFoundry/internal/kafka"
	"github.com/rakhargo/LotteryFoundry/internal/raffle"
	"github.com/rakhargo/LotteryFoundry/internal/store"
)

const sideEffectTimeout = 5 * time.Second

// EventSink publishes the raffle's observable notifications.
type EventSink interface {
	PublishEntered(ctx context.Context, ev kafka.EnteredEvent) error
	PublishWinnerPicked(ctx context.Context, ev kafka.WinnerPickedEvent) error
}

// WinnerRecorder keeps the recent-winner list.
type WinnerRecorder interface {
	Record(ctx context.Context, rec store.WinnerRecord) error
}

// RoundArchiver durably records settled rounds.
type RoundArchiver interface {
	Archive(ctx context.Context, r *store.Round) error
}

// RaffleService wraps the core state machine. Core operations keep their
// all-or-nothing semantics; notifications and history writes happen after
// the operation committed and are logged on failure, never propagated.
type RaffleService struct {
	raffle  *raffle.Raffle
	events  EventSink
	winners WinnerRecorder
	archive RoundArchiver
	logger  *log.Logger
}

func NewRaffleService(r *raffle.Raffle, events EventSink, winners WinnerRecorder, archive RoundArchiver, logger *log.Logger) *RaffleService {
	return &RaffleService{
		raffle:  r,
		events:  events,
		winners: winners,
		archive: archive,
		logger:  logger,
	}
}

// Raffle exposes the underlying state machine for read accessors.
func (s *RaffleService) Raffle() *raffle.Raffle { return s.raffle }

// Enter accepts one entry and announces it.
func (s *RaffleService) Enter(ctx context.Context, participant string, amount uint64) error {
	if err := s.raffle.Enter(ctx, participant, amount); err != nil {
		return err
	}

	evCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	ev := kafka.EnteredEvent{
		Participant: participant,
		Amount:      amount,
		Players:     s.raffle.Players(),
		Pot:         s.raffle.Pot(),
		At:          time.Now().UTC(),
	}
	if err := s.events.PublishEntered(evCtx, ev); err != nil {
		s.logger.Printf("publish entered event for %s: %v", participant, err)
	}
	return nil
}

// CheckUpkeep reports whether the round may be finalized.
func (s *RaffleService) CheckUpkeep() raffle.UpkeepStatus {
	return s.raffle.CheckUpkeep()
}

// PerformUpkeep closes the round and submits the randomness request.
func (s *RaffleService) PerformUpkeep(ctx context.Context) (string, error) {
	return s.raffle.PerformUpkeep(ctx)
}

// HandleFulfillment consumes a coordinator response and fans out the
// settlement. Registered as the coordinator's consumer callback; nothing
// else may deliver random words.
func (s *RaffleService) HandleFulfillment(ctx context.Context, requestID string, words []uint64) error {
	settlement, err := s.raffle.FulfillRandomWords(ctx, requestID, words)
	if err != nil {
		return fmt.Errorf("fulfill request %s: %w", requestID, err)
	}
	s.logger.Printf("round %d settled: winner=%s pot=%d entries=%d",
		settlement.Round, settlement.Winner, settlement.Pot, settlement.Players)

	fxCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.events.PublishWinnerPicked(fxCtx, kafka.WinnerPickedEvent{
		Round:     settlement.Round,
		RequestID: settlement.RequestID,
		Winner:    settlement.Winner,
		Pot:       settlement.Pot,
		Players:   settlement.Players,
		At:        settlement.SettledAt.UTC(),
	}); err != nil {
		s.logger.Printf("publish winner event for round %d: %v", settlement.Round, err)
	}

	if err := s.winners.Record(fxCtx, store.WinnerRecord{
		Round:     settlement.Round,
		Winner:    settlement.Winner,
		Pot:       settlement.Pot,
		SettledAt: settlement.SettledAt,
	}); err != nil {
		s.logger.Printf("record winner for round %d: %v", settlement.Round, err)
	}

	if err := s.archive.Archive(fxCtx, &store.Round{
		Number:    settlement.Round,
		RequestID: settlement.RequestID,
		Winner:    settlement.Winner,
		Pot:       settlement.Pot,
		Entries:   settlement.Players,
		StartedAt: settlement.StartedAt,
		SettledAt: settlement.SettledAt,
	}); err != nil {
		s.logger.Printf("archive round %d: %v", settlement.Round, err)
	}
	return nil
}
