// Package gateway is the typed remote-call surface of the trivia engine.
//
// Every call is a network RPC against a named, uniquely identified workflow.
// The package holds no game logic; it only moves payloads and translates
// transport failures into the error values below.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrUnavailable marks a transport failure worth retrying.
	ErrUnavailable = errors.New("engine unavailable")
	// ErrNotFound is returned when the engine has no workflow with the given id.
	ErrNotFound = errors.New("workflow not found")
	// ErrNotReady is returned by Query when the workflow has not produced the value yet.
	ErrNotReady = errors.New("query result not ready")
	// ErrAlreadyStarted is returned by Start when a workflow with the id is already running.
	ErrAlreadyStarted = errors.New("workflow already started")
)

// RejectedError is an engine-side refusal, for example a player name that
// failed moderation. Message is meant for the end user.
type RejectedError struct {
	Message string
	Type    string
	cause   error
}

func (e *RejectedError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("rejected by engine (%s): %s", e.Type, e.Message)
	}
	return "rejected by engine: " + e.Message
}

func (e *RejectedError) Unwrap() error {
	return e.cause
}

// Status is the lifecycle status of a workflow execution.
type Status int

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
	StatusCanceled
	StatusTimedOut
	StatusTerminated
	StatusContinuedAsNew
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCanceled:
		return "Canceled"
	case StatusTimedOut:
		return "TimedOut"
	case StatusTerminated:
		return "Terminated"
	case StatusContinuedAsNew:
		return "ContinuedAsNew"
	default:
		return "Unknown"
	}
}

// Live reports whether the workflow still accepts signals and queries.
func (s Status) Live() bool {
	return s == StatusRunning || s == StatusContinuedAsNew
}

// Execution is one entry of a List call.
type Execution struct {
	ID     string
	RunID  string
	Type   string
	Status Status
}

// ListFilter narrows List to one workflow type.
type ListFilter struct {
	WorkflowType string
	RunningOnly  bool
	PageSize     int32
}

// Gateway is implemented by Temporal and by in-memory fakes in tests.
type Gateway interface {
	Start(ctx context.Context, workflowType, id string, input any) error
	ExecuteAndAwait(ctx context.Context, workflowType, id string, input any, result any) error
	Signal(ctx context.Context, id, name string, payload any) error
	// Query decodes the named query into out. Empty values fail with ErrNotReady.
	Query(ctx context.Context, id, name string, out any) error
	Describe(ctx context.Context, id string) (Status, error)
	// List yields the matching executions page by page. Each call starts over.
	List(ctx context.Context, filter ListFilter) iter.Seq2[Execution, error]
	Cancel(ctx context.Context, id string) error
	Close()
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotReady)
}
