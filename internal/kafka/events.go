// Package kafka publishes the raffle's observable notifications. Events
// are observations, not effects: a failed publish is logged by the caller
// and never aborts the operation that produced it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// EnteredEvent announces one accepted entry.
type EnteredEvent struct {
	Participant string    `json:"participant"`
	Amount      uint64    `json:"amount"`
	Players     int       `json:"players"`
	Pot         uint64    `json:"pot"`
	At          time.Time `json:"at"`
}

// WinnerPickedEvent announces a settled round.
type WinnerPickedEvent struct {
	Round     uint64    `json:"round"`
	RequestID string    `json:"request_id"`
	Winner    string    `json:"winner"`
	Pot       uint64    `json:"pot"`
	Players   int       `json:"players"`
	At        time.Time `json:"at"`
}

// EventPublisher writes entry and winner notifications to their topics.
type EventPublisher struct {
	entries *kafka.Writer
	winners *kafka.Writer
}

func NewEventPublisher(brokers []string, entriesTopic, winnersTopic string) *EventPublisher {
	return &EventPublisher{
		entries: newWriter(brokers, entriesTopic),
		winners: newWriter(brokers, winnersTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func (p *EventPublisher) PublishEntered(ctx context.Context, ev EnteredEvent) error {
	return publish(ctx, p.entries, ev.Participant, ev)
}

func (p *EventPublisher) PublishWinnerPicked(ctx context.Context, ev WinnerPickedEvent) error {
	return publish(ctx, p.winners, ev.Winner, ev)
}

func publish(ctx context.Context, w *kafka.Writer, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	entriesErr := p.entries.Close()
	if err := p.winners.Close(); err != nil {
		return err
	}
	return entriesErr
}
