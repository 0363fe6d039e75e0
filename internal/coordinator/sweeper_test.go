package coordinator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/session"
)

func TestSweepEvictsGamesTheEngineDropped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "123456")
	_, err := h.co.Create(ctx, CreateRequest{Player: "alice"})
	require.NoError(t, err)
	require.True(t, h.artifacts.Exists("123456"))

	h.engine.terminate("123456")
	sessions := h.co.List(ctx)
	assert.Empty(t, sessions)

	_, err = h.registry.Get("123456")
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.False(t, h.artifacts.Exists("123456"))

	record, err := h.archive.GetGame(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"alice": 0}, record.Players)
}

func TestSweepHonoursGracePeriod(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "123456")
	h.co.cfg.SweepGrace = time.Hour
	_, err := h.co.Create(ctx, CreateRequest{Player: "alice"})
	require.NoError(t, err)
	h.engine.terminate("123456")

	report, err := h.co.Sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Evicted)
	assert.Equal(t, 1, h.registry.Len())
}

func TestSweepAdoptsUncachedGames(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.engine.seed("424242", GameInput{
		Category:          "science",
		NumberOfPlayers:   3,
		NumberOfQuestions: 4,
		AnswerTimeLimit:   15,
		StartTimeLimit:    60,
		ResultTimeLimit:   5,
	}, "carol", "dave")

	report, err := h.co.Sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Adopted)

	snap, err := h.co.Snapshot("424242")
	require.NoError(t, err)
	assert.Equal(t, "science", snap.Category)
	assert.Equal(t, 3, snap.ExpectedPlayers)
	assert.Equal(t, []string{"carol", "dave"}, snap.Players)
	assert.False(t, snap.Started)
	assert.True(t, h.artifacts.Exists("424242"))

	_, err = h.co.Join(ctx, "424242", "erin")
	require.NoError(t, err)
	_, err = h.co.Start(ctx, "424242")
	require.NoError(t, err)
}

func TestSweepSkipsFailedAdoption(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.engine.seed("424242", GameInput{Category: "x", NumberOfPlayers: 2, NumberOfQuestions: 2})
	h.engine.set(func(f *fakeEngine) { f.failQuery[testNames.DetailsQuery] = gateway.ErrUnavailable })

	report, err := h.co.Sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, h.registry.Len())
}

func TestSweepKeepsSessionsWhenListingFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "123456")
	_, err := h.co.Create(ctx, CreateRequest{Player: "alice"})
	require.NoError(t, err)
	h.engine.set(func(f *fakeEngine) { f.listErr = gateway.ErrUnavailable })

	_, err = h.co.Sweeper().Sweep(ctx)
	require.ErrorIs(t, err, gateway.ErrUnavailable)

	sessions := h.co.List(ctx)
	require.Len(t, sessions, 1)
	assert.Equal(t, "123456", sessions[0].ID)
}

func TestSweepDoesNotReadoptEndedGame(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "123456")
	startedGame(t, h)
	for _, q := range []int{0, 1} {
		h.answer(t, "123456", "alice", q, "A")
		h.answer(t, "123456", "bob", q, "A")
	}
	end, err := h.co.End(ctx, "123456")
	require.NoError(t, err)
	require.True(t, end.Evicted)

	report, err := h.co.Sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Live)
	assert.Zero(t, report.Adopted)
	assert.Zero(t, h.registry.Len())
}

func TestSweepNeverAdoptsRolledBackGames(t *testing.T) {
	ctx := context.Background()
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = fmt.Sprintf("%06d", 100000+i)
	}
	h := newHarness(t, ids...)
	h.engine.set(func(f *fakeEngine) { f.reject["rude"] = "name not allowed" })

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_, err := h.co.Sweeper().Sweep(ctx)
			assert.NoError(t, err)
		}
	}()
	for range ids {
		_, err := h.co.Create(ctx, CreateRequest{Player: "rude"})
		require.Error(t, err)
	}
	close(done)
	wg.Wait()

	report, err := h.co.Sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Adopted)
	assert.Zero(t, h.registry.Len())
}
