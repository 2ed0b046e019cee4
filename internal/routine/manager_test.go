package routine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRejectsBadInput(t *testing.T) {
	m := NewManager(context.Background())

	assert.ErrorIs(t, m.Run("id", nil), ErrNilHandler)
	assert.ErrorIs(t, m.Run("", func(ctx context.Context) error { return nil }), ErrEmptyID)
	assert.ErrorIs(t, m.RunTask(nil), ErrNilTask)
	assert.ErrorIs(t, m.RunTask(&Task{ID: "id"}), ErrTaskHandlerUnset)
}

func TestRunRejectsDuplicateID(t *testing.T) {
	m := NewManager(context.Background())
	block := make(chan struct{})
	handler := func(ctx context.Context) error {
		<-block
		return nil
	}

	require.NoError(t, m.Run("dup", handler))
	assert.ErrorIs(t, m.Run("dup", handler), ErrRoutineExists)
	close(block)
}

func TestShutdownWaitsForTask(t *testing.T) {
	m := NewManager(context.Background())
	done := make(chan struct{})

	require.NoError(t, m.RunTask(&Task{
		ID: "waiter",
		Handler: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		OnDone: func(string) { close(done) },
	}))
	require.True(t, m.Running("waiter"))

	require.NoError(t, m.Shutdown("waiter"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnDone not invoked after shutdown")
	}
	assert.False(t, m.Running("waiter"))

	assert.ErrorIs(t, m.Shutdown("waiter"), ErrRoutineNotFound)
}

func TestShutdownAllDrainsEverything(t *testing.T) {
	m := NewManager(context.Background())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.Run(id, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	}

	require.NoError(t, m.ShutdownAll())
	for _, id := range []string{"a", "b", "c"} {
		assert.False(t, m.Running(id))
	}
}

func TestOnErrorHook(t *testing.T) {
	m := NewManager(context.Background())
	errs := make(chan error, 1)

	require.NoError(t, m.RunTask(&Task{
		ID: "failing",
		Handler: func(ctx context.Context) error {
			return context.DeadlineExceeded
		},
		OnError: func(id string, err error) { errs <- err },
	}))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("OnError not invoked")
	}
}
