// Package vrf holds the randomness-oracle boundary. The raffle core only
// sees the Coordinator interface; this package provides the simulated
// implementation used for development and test deployments.
package vrf

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rakhargo/LotteryFoundry/internal/raffle"
	"github.com/rakhargo/LotteryFoundry/internal/routine"
)

// FulfillFunc consumes one fulfillment. Holding this callback is the only
// way to deliver random words, so registering it is the access-control
// boundary: nothing but the coordinator can invoke the handler.
type FulfillFunc func(ctx context.Context, requestID string, words []uint64) error

var (
	// ErrClosed rejects requests after Close.
	ErrClosed = errors.New("vrf: coordinator is closed")
	// ErrNoConsumer rejects requests before a consumer is registered.
	ErrNoConsumer = errors.New("vrf: no fulfillment consumer registered")
)

// SimulatedCoordinator assigns a UUID to each request and delivers the
// random words asynchronously after a fixed delay, exactly once per
// accepted request. In-flight deliveries are tracked per request id so
// Close can drain them.
type SimulatedCoordinator struct {
	delay   time.Duration
	logger  *log.Logger
	manager *routine.Manager

	mu       sync.Mutex
	consumer FulfillFunc
	closed   bool
}

func NewSimulatedCoordinator(delay time.Duration, logger *log.Logger) *SimulatedCoordinator {
	return &SimulatedCoordinator{
		delay:   delay,
		logger:  logger,
		manager: routine.NewManager(context.Background()),
	}
}

// RegisterConsumer hands the fulfillment capability to the raffle service.
// It must be called before the first request.
func (c *SimulatedCoordinator) RegisterConsumer(fn FulfillFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumer = fn
}

// RequestRandomWords accepts a randomness request and schedules its
// asynchronous fulfillment. It implements raffle.Coordinator.
func (c *SimulatedCoordinator) RequestRandomWords(ctx context.Context, req raffle.RandomnessRequest) (string, error) {
	c.mu.Lock()
	consumer := c.consumer
	closed := c.closed
	c.mu.Unlock()

	if closed {
		return "", ErrClosed
	}
	if consumer == nil {
		return "", ErrNoConsumer
	}
	if req.NumWords == 0 {
		return "", errors.New("vrf: zero random words requested")
	}

	requestID := uuid.NewString()
	words := make([]uint64, req.NumWords)
	for i := range words {
		w, err := randomWord()
		if err != nil {
			return "", fmt.Errorf("draw random word: %w", err)
		}
		words[i] = w
	}

	err := c.manager.RunTask(&routine.Task{
		ID: requestID,
		Handler: func(taskCtx context.Context) error {
			if c.delay > 0 {
				select {
				case <-taskCtx.Done():
					return taskCtx.Err()
				case <-time.After(c.delay):
				}
			}
			return consumer(taskCtx, requestID, words)
		},
		OnError: func(id string, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Printf("fulfillment of request %s failed: %v", id, err)
		},
	})
	if err != nil {
		return "", fmt.Errorf("schedule fulfillment: %w", err)
	}
	return requestID, nil
}

// Pending reports whether a request is still awaiting delivery.
func (c *SimulatedCoordinator) Pending(requestID string) bool {
	return c.manager.Running(requestID)
}

// Close stops accepting requests and drains in-flight deliveries.
func (c *SimulatedCoordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.manager.ShutdownAll()
}

var maxWord = new(big.Int).Lsh(big.NewInt(1), 64)

// randomWord draws a uniform uint64 from crypto/rand.
func randomWord() (uint64, error) {
	n, err := rand.Int(rand.Reader, maxWord)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}
