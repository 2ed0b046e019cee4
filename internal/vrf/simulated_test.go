package vrf

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakhargo/LotteryFoundry/internal/raffle"
)

func testRequest() raffle.RandomnessRequest {
	return raffle.RandomnessRequest{
		KeyHash:              "0xabc",
		SubscriptionID:       1,
		RequestConfirmations: 3,
		CallbackGasLimit:     500_000,
		NumWords:             1,
	}
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type delivery struct {
	requestID string
	words     []uint64
}

func TestSimulatedCoordinatorDeliversOnce(t *testing.T) {
	c := NewSimulatedCoordinator(0, discardLogger())
	deliveries := make(chan delivery, 2)
	c.RegisterConsumer(func(ctx context.Context, requestID string, words []uint64) error {
		deliveries <- delivery{requestID: requestID, words: words}
		return nil
	})

	requestID, err := c.RequestRandomWords(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotEmpty(t, requestID)

	select {
	case d := <-deliveries:
		assert.Equal(t, requestID, d.requestID)
		assert.Len(t, d.words, 1)
	case <-time.After(time.Second):
		t.Fatal("fulfillment was not delivered")
	}

	select {
	case <-deliveries:
		t.Fatal("fulfillment delivered twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSimulatedCoordinatorAssignsDistinctIDs(t *testing.T) {
	c := NewSimulatedCoordinator(0, discardLogger())
	c.RegisterConsumer(func(ctx context.Context, requestID string, words []uint64) error {
		return nil
	})

	first, err := c.RequestRandomWords(context.Background(), testRequest())
	require.NoError(t, err)
	second, err := c.RequestRandomWords(context.Background(), testRequest())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSimulatedCoordinatorRequiresConsumer(t *testing.T) {
	c := NewSimulatedCoordinator(0, discardLogger())

	_, err := c.RequestRandomWords(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrNoConsumer)
}

func TestSimulatedCoordinatorRejectsZeroWords(t *testing.T) {
	c := NewSimulatedCoordinator(0, discardLogger())
	c.RegisterConsumer(func(ctx context.Context, requestID string, words []uint64) error {
		return nil
	})

	req := testRequest()
	req.NumWords = 0
	_, err := c.RequestRandomWords(context.Background(), req)
	assert.Error(t, err)
}

func TestSimulatedCoordinatorClose(t *testing.T) {
	c := NewSimulatedCoordinator(time.Minute, discardLogger())
	c.RegisterConsumer(func(ctx context.Context, requestID string, words []uint64) error {
		<-ctx.Done()
		return ctx.Err()
	})

	requestID, err := c.RequestRandomWords(context.Background(), testRequest())
	require.NoError(t, err)
	assert.True(t, c.Pending(requestID))

	require.NoError(t, c.Close())
	assert.False(t, c.Pending(requestID))

	_, err = c.RequestRandomWords(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrClosed)
}
