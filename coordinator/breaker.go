package coordinator

import (
	"context"
	"sync"
	"time"
)

// BreakerOptions configures a CircuitBreaker.
type BreakerOptions struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before permitting a probe.
	Cooldown time.Duration
}

// CircuitBreaker wraps an AgentExecutor and stops invoking it after a run of
// consecutive failures, recovering after a cool-down. It protects an
// externally rate-limited executor from being hammered while it is down.
type CircuitBreaker struct {
	inner     AgentExecutor
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
}

// NewCircuitBreaker wraps inner with failure-threshold admission control.
func NewCircuitBreaker(inner AgentExecutor, optFns ...func(o *BreakerOptions)) *CircuitBreaker {
	opts := BreakerOptions{FailureThreshold: 5, Cooldown: 30 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &CircuitBreaker{inner: inner, threshold: opts.FailureThreshold, cooldown: opts.Cooldown}
}

// Run implements AgentExecutor. While open and inside the cool-down it fails
// fast with ErrCircuitOpen; the first call after the cool-down is the probe
// that either closes the circuit or re-opens it.
func (b *CircuitBreaker) Run(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
	b.mu.Lock()
	if b.open {
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return nil, ErrCircuitOpen
		}
		// half-open: let this call probe the executor
	}
	b.mu.Unlock()

	out, err := b.inner.Run(ctx, agentID, taskType, input)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.failures++
		if b.failures >= b.threshold {
			b.open = true
			b.openedAt = time.Now()
		}
		return nil, err
	}
	b.failures = 0
	b.open = false
	return out, nil
}

// Open reports whether the circuit is currently rejecting calls.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && time.Since(b.openedAt) < b.cooldown
}
