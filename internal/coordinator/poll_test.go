package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
)

var fastPoll = PollPolicy{Timeout: 200 * time.Millisecond, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func TestPollRetriesUntilReady(t *testing.T) {
	calls := 0
	got, err := poll(context.Background(), fastPoll, "value", func(context.Context) (int, error) {
		calls++
		switch {
		case calls == 1:
			return 0, gateway.ErrNotReady
		case calls == 2:
			return 0, gateway.ErrUnavailable
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestPollStopsOnPermanentError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := poll(context.Background(), fastPoll, "value", func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, calls)
}

func TestPollTimesOut(t *testing.T) {
	start := time.Now()
	_, err := poll(context.Background(), fastPoll, "value", func(context.Context) (int, error) {
		return 0, gateway.ErrNotReady
	})
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, gateway.ErrNotReady)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPollHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := poll(ctx, PollPolicy{Timeout: time.Minute}, "value", func(context.Context) (int, error) {
		return 0, gateway.ErrNotReady
	})
	require.Error(t, err)
}
