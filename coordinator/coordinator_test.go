package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peregrine-ai/a2arelay/artifact"
	"github.com/peregrine-ai/a2arelay/session"
	"github.com/peregrine-ai/a2arelay/task"
)

// countingExecutor tracks concurrent in-flight invocations and optionally
// fails the first n attempts per agent.
type countingExecutor struct {
	mu        sync.Mutex
	inFlight  int32
	maxSeen   int32
	attempts  map[string]int
	failFirst int
	delay     time.Duration
}

func newCountingExecutor(failFirst int, delay time.Duration) *countingExecutor {
	return &countingExecutor{attempts: map[string]int{}, failFirst: failFirst, delay: delay}
}

func (e *countingExecutor) Run(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
	cur := atomic.AddInt32(&e.inFlight, 1)
	for {
		max := atomic.LoadInt32(&e.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&e.maxSeen, max, cur) {
			break
		}
	}
	defer atomic.AddInt32(&e.inFlight, -1)

	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	e.mu.Lock()
	e.attempts[agentID]++
	n := e.attempts[agentID]
	e.mu.Unlock()

	if n <= e.failFirst {
		return nil, fmt.Errorf("transient failure %d", n)
	}
	return map[string]any{"echo": agentID}, nil
}

func fastRetry() RetryPolicy { return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond} }

func TestExecuteParallel_PreservesOrderAndCount(t *testing.T) {
	exec := newCountingExecutor(0, 0)
	c := New(exec, func(o *Options) { o.Retry = fastRetry() })

	specs := []TaskSpec{
		{AgentID: "a", Type: "t"},
		{AgentID: "b", Type: "t"},
		{AgentID: "c", Type: "t"},
	}
	results := c.ExecuteParallel(context.Background(), specs, "s1")
	require.Len(t, results, 3)
	for i, spec := range specs {
		assert.Equal(t, spec.AgentID, results[i].AgentID)
		assert.Equal(t, "success", results[i].Status)
	}
}

func TestExecuteParallel_SemaphoreBoundsConcurrency(t *testing.T) {
	exec := newCountingExecutor(0, 50*time.Millisecond)
	c := New(exec, func(o *Options) {
		o.MaxConcurrent = 2
		o.Retry = fastRetry()
	})

	specs := make([]TaskSpec, 5)
	for i := range specs {
		specs[i] = TaskSpec{AgentID: fmt.Sprintf("agent-%d", i), Type: "t"}
	}
	results := c.ExecuteParallel(context.Background(), specs, "s1")
	require.Len(t, results, 5)
	assert.LessOrEqual(t, atomic.LoadInt32(&exec.maxSeen), int32(2))
}

func TestExecuteTask_RetriesThenSucceeds(t *testing.T) {
	exec := newCountingExecutor(2, 0) // fail attempts 1-2, succeed on 3
	c := New(exec, func(o *Options) { o.Retry = fastRetry() })

	results := c.ExecuteParallel(context.Background(), []TaskSpec{{AgentID: "a", Type: "t"}}, "s1")
	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.Retries)

	hist := c.History("s1")
	require.Len(t, hist, 3)
	assert.Equal(t, OutcomeError, hist[0].Outcome)
	assert.Equal(t, OutcomeError, hist[1].Outcome)
	assert.Equal(t, OutcomeSuccess, hist[2].Outcome)
	assert.Equal(t, 0, c.ConsecutiveFailures("a"))
}

func TestExecuteTask_RetryExhaustedIsolated(t *testing.T) {
	failing := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		if agentID == "bad" {
			return nil, errors.New("permanently broken")
		}
		return map[string]any{"ok": "yes"}, nil
	})
	c := New(failing, func(o *Options) { o.Retry = fastRetry() })

	results := c.ExecuteParallel(context.Background(), []TaskSpec{
		{AgentID: "bad", Type: "t"},
		{AgentID: "good", Type: "t"},
	}, "s1")
	require.Len(t, results, 2)

	assert.Equal(t, "error", results[0].Status)
	assert.Contains(t, results[0].Error, ErrRetryExhausted.Error())
	assert.Equal(t, "success", results[1].Status)
	assert.Equal(t, 3, c.ConsecutiveFailures("bad"))
}

func TestExecuteTask_TimeoutOutcome(t *testing.T) {
	slow := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		time.Sleep(200 * time.Millisecond) // deliberately ignores ctx
		return map[string]any{}, nil
	})
	c := New(slow, func(o *Options) {
		o.InvocationTimeout = 20 * time.Millisecond
		o.Retry = RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}
	})

	results := c.ExecuteParallel(context.Background(), []TaskSpec{{AgentID: "a", Type: "t"}}, "s1")
	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].Status)

	hist := c.History("s1")
	require.Len(t, hist, 2)
	for _, h := range hist {
		assert.Equal(t, OutcomeTimeout, h.Outcome)
	}
}

func TestExecuteTask_PanicConvertedToResult(t *testing.T) {
	panicky := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		panic("boom")
	})
	c := New(panicky, func(o *Options) { o.Retry = fastRetry() })

	results := c.ExecuteParallel(context.Background(), []TaskSpec{{AgentID: "a", Type: "t", Input: map[string]any{"k": "v"}}}, "s1")
	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].Status)
	assert.Contains(t, results[0].Error, "panic")
}

func TestExecuteTask_ExpiredSpecDropped(t *testing.T) {
	exec := newCountingExecutor(0, 0)
	c := New(exec, func(o *Options) { o.Retry = fastRetry() })

	past := time.Now().Add(-time.Second)
	results := c.ExecuteParallel(context.Background(), []TaskSpec{{AgentID: "a", Type: "t", ExpiresAt: &past}}, "s1")
	require.Len(t, results, 1)
	assert.Equal(t, "error", results[0].Status)
	assert.Equal(t, ErrTaskExpired.Error(), results[0].Error)
	assert.Zero(t, exec.attempts["a"])
}

func TestExecuteTask_TokenAccounting(t *testing.T) {
	exec := newCountingExecutor(0, 0)
	c := New(exec, func(o *Options) { o.Retry = fastRetry() })

	input := map[string]any{"prompt": "analyze the coastal flood projections"}
	c.ExecuteParallel(context.Background(), []TaskSpec{{AgentID: "a", Type: "t", Input: input}}, "s1")

	snap := c.TokenUsage()
	assert.Positive(t, snap.Total.Input)
	assert.Positive(t, snap.Total.Output)
	assert.Equal(t, snap.Total.Input+snap.Total.Output, snap.Total.Total)
	assert.Contains(t, snap.ByAgent, "a")
}

func TestExecuteTask_CollaboratorsWired(t *testing.T) {
	exec := newCountingExecutor(0, 0)
	store := artifact.NewInMemoryStore()
	state := session.NewInMemoryStore()
	tasks := task.NewManager()

	tk, err := tasks.Create("analysis", "orchestrator")
	require.NoError(t, err)

	c := New(exec, func(o *Options) {
		o.Retry = fastRetry()
		o.Artifacts = store
		o.State = state
		o.Tasks = tasks
	})

	results := c.ExecuteParallel(context.Background(), []TaskSpec{
		{AgentID: "a", Type: "analysis", Input: map[string]any{"k": "v"}, TaskID: tk.ID},
	}, "s1")
	require.Len(t, results, 1)
	res := results[0]
	require.Equal(t, "success", res.Status)
	require.NotEmpty(t, res.ArtifactRef)

	rec, err := store.Get("s1", res.ArtifactRef)
	require.NoError(t, err)
	assert.Equal(t, "a", rec.AgentID)

	sess, err := state.Get("s1")
	require.NoError(t, err)
	_, ok := sess.Get("agent:a")
	assert.True(t, ok)

	done, err := tasks.Get(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)
}

func TestExecuteTask_LedgerFailedOnExhaustion(t *testing.T) {
	failing := AgentExecutorFunc(func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
		return nil, errors.New("nope")
	})
	tasks := task.NewManager()
	tk, err := tasks.Create("analysis", "orchestrator")
	require.NoError(t, err)

	c := New(failing, func(o *Options) {
		o.Retry = fastRetry()
		o.Tasks = tasks
	})
	c.ExecuteParallel(context.Background(), []TaskSpec{{AgentID: "a", Type: "t", TaskID: tk.ID}}, "s1")

	got, err := tasks.Get(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, task.StatusFailed, got.Status)
}

func TestExecuteParallel_ContextCancelled(t *testing.T) {
	exec := newCountingExecutor(0, 50*time.Millisecond)
	c := New(exec, func(o *Options) {
		o.MaxConcurrent = 1
		o.Retry = fastRetry()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := c.ExecuteParallel(ctx, []TaskSpec{{AgentID: "a", Type: "t"}, {AgentID: "b", Type: "t"}}, "s1")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "error", r.Status)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(nil))
	assert.Equal(t, 3, estimateTokens("twelve chars"))
	nested := map[string]any{
		"key1": "aaaa",                       // 1 + 1
		"list": []any{"bbbb", "cccc"},        // 1 + 1 + 1
		"map":  map[string]any{"dddd": "ee"}, // 0 + 1 + 0
	}
	// keys: key1(1) list(1) map(0) dddd(1); values: aaaa(1) bbbb(1) cccc(1) ee(0)
	assert.Equal(t, 6, estimateTokens(nested))
}
