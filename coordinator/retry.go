package coordinator

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy is the single retry/backoff configuration shared by everything
// that re-attempts agent invocations. Delays double per attempt starting at
// BaseDelay with no jitter, so attempt n waits BaseDelay * 2^n.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
}

// DefaultRetryPolicy matches the protocol defaults: three attempts, one
// second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// NewBackOff builds a fresh deterministic exponential backoff source for one
// invocation's retry loop.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 5 * time.Minute
	b.MaxElapsedTime = 0 // attempts are bounded by MaxAttempts, not wall clock
	b.Reset()
	return b
}
