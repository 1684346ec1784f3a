package verification

import (
	"context"
	"errors"
	"time"
)

// ErrVerificationTimeout is returned when a poll loop exhausts its deadline
// without the check reaching a terminal state.
var ErrVerificationTimeout = errors.New("verification timed out")

const (
	DefaultPollInterval = 10 * time.Second
	DefaultPollDeadline = 3 * time.Minute
)

// CheckFunc inspects the remote job once. done reports a terminal state; the
// returned error is final when done is true and treated as transient (retried
// silently) otherwise.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Poll runs check immediately and then once per interval until it reports a
// terminal state, the deadline elapses, or the context is cancelled. There is
// no server-side cancellation of the remote job; stopping the poll is the
// only cancellation.
func Poll(ctx context.Context, interval, deadline time.Duration, check CheckFunc) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if deadline <= 0 {
		deadline = DefaultPollDeadline
	}

	expires := time.NewTimer(deadline)
	defer expires.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := check(ctx)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expires.C:
			return ErrVerificationTimeout
		case <-ticker.C:
		}
	}
}
