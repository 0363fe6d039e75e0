package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerLastWriteWins(t *testing.T) {
	l := NewAnswerLedger()
	l.Record(0, "alice", "Mars", "Jupiter")
	l.Record(0, "alice", "Jupiter", "Jupiter")

	snap := l.Snapshot(0)
	require.Len(t, snap, 1)
	require.Equal(t, Answer{Choice: "Jupiter", CorrectChoice: "Jupiter"}, snap["alice"])
}

func TestLedgerGrowsLazily(t *testing.T) {
	l := NewAnswerLedger()
	require.Empty(t, l.Snapshot(3))
	require.Equal(t, 0, l.Len())

	l.Record(2, "bob", "B", "A")
	require.Equal(t, 3, l.Len())
	require.Empty(t, l.Snapshot(0))
	require.Len(t, l.Snapshot(2), 1)

	l.Record(-1, "bob", "B", "A")
	require.Equal(t, 3, l.Len())
}

func TestLedgerSnapshotIsCopy(t *testing.T) {
	l := NewAnswerLedger()
	l.Record(0, "alice", "A", "A")
	snap := l.Snapshot(0)
	delete(snap, "alice")
	require.Len(t, l.Snapshot(0), 1)

	all := l.All()
	all[0]["mallory"] = Answer{Choice: "X"}
	require.Len(t, l.Snapshot(0), 1)
}

func TestLedgerConcurrentWriters(t *testing.T) {
	l := NewAnswerLedger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			player := fmt.Sprintf("p%d", i%10)
			l.Record(i%3, player, fmt.Sprintf("c%d", i), "c0")
		}(i)
	}
	wg.Wait()
	total := 0
	for i := 0; i < 3; i++ {
		total += len(l.Snapshot(i))
	}
	require.LessOrEqual(t, total, 30)
	require.Equal(t, 3, l.Len())
}
