package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create("2", Params{ExpectedPlayers: 2})
	require.NoError(t, err)
	_, err = r.Create("1", Params{ExpectedPlayers: 2})
	require.NoError(t, err)
	_, err = r.Create("2", Params{ExpectedPlayers: 3})
	require.ErrorIs(t, err, ErrSessionAlreadyExists)

	s, err := r.Get("2")
	require.NoError(t, err)
	require.Equal(t, 2, s.Params.ExpectedPlayers)

	require.Equal(t, []string{"1", "2"}, r.ListIDs())

	require.True(t, r.Delete("1"))
	require.False(t, r.Delete("1"))
	_, err = r.Get("1")
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.Equal(t, 1, r.Len())
}

func TestRegistryConcurrentCreate(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := r.Create(fmt.Sprintf("%d", i%10), Params{ExpectedPlayers: 1}); err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
			_ = r.ListIDs()
		}(i)
	}
	wg.Wait()
	require.Equal(t, 10, created)
	require.Equal(t, 10, r.Len())
}
