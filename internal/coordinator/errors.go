package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when a bounded poll gives up.
	ErrTimeout = errors.New("timed out waiting for the engine")
	// ErrIDSpaceExhausted is returned when no free session id was found.
	ErrIDSpaceExhausted = errors.New("could not allocate a free session id")
	ErrSessionFull      = errors.New("session already has all its players")
	ErrAwaitingPlayers  = errors.New("session is still waiting for players")
	ErrAnswersClosed    = errors.New("answers are not open for this question")
	ErrUnknownPlayer    = errors.New("player has not joined this session")
)

// ValidationError is a bad client input caught before any engine call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
