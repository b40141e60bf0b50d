package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	boom := errors.New("backend down")
	inner := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		return nil, boom
	})
	cb := NewCircuitBreaker(inner, func(o *BreakerOptions) {
		o.FailureThreshold = 2
		o.Cooldown = time.Hour
	})

	for i := 0; i < 2; i++ {
		_, err := cb.Run(context.Background(), "a", "t", nil)
		assert.ErrorIs(t, err, boom)
	}
	require.True(t, cb.Open())

	_, err := cb.Run(context.Background(), "a", "t", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	calls := 0
	inner := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		calls++
		if calls <= 2 {
			return nil, errors.New("down")
		}
		return map[string]any{"ok": true}, nil
	})
	cb := NewCircuitBreaker(inner, func(o *BreakerOptions) {
		o.FailureThreshold = 2
		o.Cooldown = 10 * time.Millisecond
	})

	cb.Run(context.Background(), "a", "t", nil)
	cb.Run(context.Background(), "a", "t", nil)
	require.True(t, cb.Open())

	time.Sleep(15 * time.Millisecond)
	out, err := cb.Run(context.Background(), "a", "t", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, out)
	assert.False(t, cb.Open())
}

func TestCircuitBreaker_SuccessResetsRun(t *testing.T) {
	fail := true
	inner := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		if fail {
			return nil, errors.New("down")
		}
		return map[string]any{}, nil
	})
	cb := NewCircuitBreaker(inner, func(o *BreakerOptions) { o.FailureThreshold = 3 })

	cb.Run(context.Background(), "a", "t", nil)
	cb.Run(context.Background(), "a", "t", nil)
	fail = false
	_, err := cb.Run(context.Background(), "a", "t", nil)
	require.NoError(t, err)

	// Two more failures should not trip a threshold of three.
	fail = true
	cb.Run(context.Background(), "a", "t", nil)
	cb.Run(context.Background(), "a", "t", nil)
	assert.False(t, cb.Open())
}

func TestCoordinator_BreakerShortCircuitsRetries(t *testing.T) {
	inner := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		return nil, errors.New("down")
	})
	cb := NewCircuitBreaker(inner, func(o *BreakerOptions) {
		o.FailureThreshold = 1
		o.Cooldown = time.Hour
	})
	c := New(cb, func(o *Options) { o.Retry = RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond} })

	results := c.ExecuteParallel(context.Background(), []TaskSpec{{AgentID: "a", Type: "t"}}, "s1")
	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].Status)

	// Attempt one trips the breaker, attempt two fails fast, then the loop
	// stops instead of burning the remaining attempts.
	hist := c.History("s1")
	assert.Len(t, hist, 2)
}
