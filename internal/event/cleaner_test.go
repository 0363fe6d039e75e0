package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanerRunsInReverseOrder(t *testing.T) {
	c := newCleaner()
	var order []string
	record := func(name string, err error) Callable {
		return CallableFunc(func(context.Context) error {
			order = append(order, name)
			return err
		})
	}
	c.Add("database", record("database", nil))
	c.Add("engine", record("engine", errors.New("dial closed")))
	c.Add("http", record("http", nil))

	loggerClosed := false
	c.loggerShutdown = CallableFunc(func(context.Context) error {
		loggerClosed = true
		return nil
	})

	err := c.Clean()
	require.ErrorContains(t, err, "engine: dial closed")
	require.Equal(t, []string{"http", "engine", "database"}, order)
	require.True(t, loggerClosed)

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestCleanerIgnoresLateAdd(t *testing.T) {
	c := newCleaner()
	require.NoError(t, c.Clean())

	called := false
	c.Add("late", CallableFunc(func(context.Context) error {
		called = true
		return nil
	}))
	require.NoError(t, c.Clean())
	require.False(t, called)
}
