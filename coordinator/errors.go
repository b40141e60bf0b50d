package coordinator

import "errors"

var (
	// ErrInvocationTimeout marks an attempt that exceeded the per-attempt
	// wall-clock timeout. Timeouts are retried like any transient error.
	ErrInvocationTimeout = errors.New("agent invocation timed out")

	// ErrRetryExhausted marks an invocation that failed every permitted
	// attempt. Surfaced inside the per-task Result, never as a batch error.
	ErrRetryExhausted = errors.New("retries exhausted")

	// ErrCircuitOpen is returned by a CircuitBreaker rejecting calls during
	// its cool-down window.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrTaskExpired marks a task whose TTL elapsed before invocation.
	ErrTaskExpired = errors.New("task expired before execution")
)
