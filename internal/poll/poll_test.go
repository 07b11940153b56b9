package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitSucceedsOnceDone(t *testing.T) {
	calls := 0
	err := Wait(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitDeadline(t *testing.T) {
	calls := 0
	err := Wait(context.Background(), time.Millisecond, 20*time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrDeadline)
	assert.Greater(t, calls, 0)

	// No further polling after the deadline fired.
	before := calls
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, before, calls)
}

func TestWaitStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Wait(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWaitContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := Wait(ctx, 50*time.Millisecond, time.Minute, func(context.Context) (bool, error) {
		cancel()
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitZeroTimeout(t *testing.T) {
	calls := 0
	err := Wait(context.Background(), time.Millisecond, 0, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	assert.ErrorIs(t, err, ErrDeadline)
	assert.Equal(t, 0, calls)
}
