package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/gateway"
)

// PollPolicy bounds a poll-until-ready loop.
type PollPolicy struct {
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Timeout <= 0 {
		p.Timeout = 15 * time.Second
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 100 * time.Millisecond
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

// poll retries op with exponential backoff while it fails with a retryable
// gateway error. Any other error stops it at once. Running out of time yields
// ErrTimeout wrapping the last retryable error.
func poll[T any](ctx context.Context, policy PollPolicy, what string, op func(context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	attempts := 0
	res, err := backoff.Retry(ctx, func() (T, error) {
		attempts++
		v, err := op(ctx)
		if err == nil || gateway.Retryable(err) {
			return v, err
		}
		return v, backoff.Permanent(err)
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(policy.Timeout))
	if err != nil && gateway.Retryable(err) {
		return res, fmt.Errorf("%w: %s after %d attempts: %w", ErrTimeout, what, attempts, err)
	}
	return res, err
}
