package link

import (
	"context"
	"time"
)

// Policy is a bounded exponential backoff reconnect policy. MaxAttempts of
// zero means retry forever.
type Policy struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration
}

// DefaultPolicy is used when a link omits its retry configuration.
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	BackoffBase: 500 * time.Millisecond,
	BackoffCap:  10 * time.Second,
}

// Backoff returns the delay before the given reconnect attempt. Attempts
// are counted from one; attempt one is delayed by BackoffBase and the delay
// doubles per attempt up to BackoffCap.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := p.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	if d > p.BackoffCap {
		return p.BackoffCap
	}
	return d
}

// Exhausted reports whether the attempt budget has been used up.
func (p Policy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Wait sleeps for the backoff delay of the given attempt, returning early
// with the context error if the context is cancelled.
func (p Policy) Wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(p.Backoff(attempt))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
