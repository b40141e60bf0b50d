package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/peregrine-ai/a2arelay/logging"
	"github.com/peregrine-ai/a2arelay/protocol"
	"github.com/peregrine-ai/a2arelay/router"
	"github.com/peregrine-ai/a2arelay/task"
)

// Outcome classifies one invocation attempt.
type Outcome string

const (
	// OutcomeSuccess marks a completed attempt.
	OutcomeSuccess Outcome = "success"
	// OutcomeTimeout marks an attempt that hit the per-attempt timeout.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeError marks an attempt that failed for any other reason.
	OutcomeError Outcome = "error"
)

// HistoryEntry records one invocation attempt for post-hoc inspection.
type HistoryEntry struct {
	AgentID  string        `json:"agent_id"`
	TaskType string        `json:"task_type"`
	Outcome  Outcome       `json:"outcome"`
	Attempt  int           `json:"attempt"`
	Error    string        `json:"error,omitempty"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
}

// TaskSpec describes one agent invocation in a batch.
type TaskSpec struct {
	// AgentID names the agent the executor should run.
	AgentID string `json:"agent_id"`
	// Type is the task type handed to the executor.
	Type string `json:"task_type"`
	// Input is the task payload.
	Input map[string]any `json:"input,omitempty"`
	// TaskID optionally links the invocation to a ledger entry; the
	// coordinator then drives that task's status transitions.
	TaskID string `json:"task_id,omitempty"`
	// ReplyTo optionally names an agent that receives a result notification
	// through the router.
	ReplyTo string `json:"reply_to,omitempty"`
	// ExpiresAt optionally bounds how long the spec stays executable.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s TaskSpec) expired() bool {
	return s.ExpiresAt != nil && time.Now().After(*s.ExpiresAt)
}

// Result is the per-task outcome of a batch execution. A batch of N specs
// always produces exactly N results, failures included.
type Result struct {
	AgentID     string           `json:"agent_id"`
	Status      string           `json:"status"` // "success" or "error"
	Output      map[string]any   `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	Retries     int              `json:"retries"`
	TokenUsage  AgentTokens      `json:"token_usage"`
	Compression CompressionStats `json:"compression"`
	ArtifactRef string           `json:"artifact_ref,omitempty"`
}

// Options holds dependency and configuration overrides passed to New().
type Options struct {
	// MaxConcurrent bounds simultaneous executor invocations. This is
	// backpressure in front of an expensive, rate-limited dependency, not a
	// parallelism tuning knob.
	MaxConcurrent int64
	// InvocationTimeout is the per-attempt wall-clock bound.
	InvocationTimeout time.Duration
	// Retry is the shared retry/backoff policy.
	Retry RetryPolicy
	// Router, when set, receives result notifications for specs with ReplyTo.
	Router *router.Router
	// Tasks, when set, tracks ledger status for specs with TaskID.
	Tasks *task.Manager
	// Artifacts, when set, persists successful outputs.
	Artifacts ArtifactStore
	// State, when set, receives session-scoped result deltas.
	State SharedState
	// Logger receives execution diagnostics.
	Logger logging.Logger
}

// Coordinator executes batches of agent invocations under bounded
// concurrency with retry, token accounting and compression metrics. Public
// methods are safe for concurrent use; token usage and history writes are
// serialized internally so near-simultaneous completions cannot lose
// updates.
type Coordinator struct {
	executor AgentExecutor
	sem      *semaphore.Weighted
	timeout  time.Duration
	retry    RetryPolicy

	router    *router.Router
	tasks     *task.Manager
	artifacts ArtifactStore
	state     SharedState
	logger    logging.Logger

	tokens *TokenUsage

	mu       sync.Mutex
	history  map[string][]HistoryEntry // sessionID -> attempts
	errRuns  map[string]int            // agentID -> consecutive failures
}

// New constructs a Coordinator around the given executor.
func New(executor AgentExecutor, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		MaxConcurrent:     5,
		InvocationTimeout: 300 * time.Second,
		Retry:             DefaultRetryPolicy(),
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	return &Coordinator{
		executor:  executor,
		sem:       semaphore.NewWeighted(opts.MaxConcurrent),
		timeout:   opts.InvocationTimeout,
		retry:     opts.Retry,
		router:    opts.Router,
		tasks:     opts.Tasks,
		artifacts: opts.Artifacts,
		state:     opts.State,
		logger:    opts.Logger,
		tokens:    NewTokenUsage(),
		history:   make(map[string][]HistoryEntry),
		errRuns:   make(map[string]int),
	}
}

// ExecuteParallel runs every spec concurrently under the admission semaphore
// and gathers results preserving input order. One task's failure never
// cancels its siblings; panics inside a task are converted to error results
// at the task boundary.
func (c *Coordinator) ExecuteParallel(ctx context.Context, specs []TaskSpec, sessionID string) []Result {
	results := make([]Result, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec TaskSpec) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("task panicked", "agent_id", spec.AgentID, "panic", fmt.Sprint(r))
					results[i] = Result{AgentID: spec.AgentID, Status: "error", Error: fmt.Sprintf("panic: %v", r)}
				}
			}()
			if err := c.sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{AgentID: spec.AgentID, Status: "error", Error: err.Error()}
				return
			}
			defer c.sem.Release(1)
			results[i] = c.executeTask(ctx, spec, sessionID)
		}(i, spec)
	}
	wg.Wait()
	return results
}

// executeTask runs one invocation end to end: expiry re-check, compression
// metrics, retry loop, token accounting, artifact/state hand-off and ledger
// transitions.
func (c *Coordinator) executeTask(ctx context.Context, spec TaskSpec, sessionID string) Result {
	res := Result{AgentID: spec.AgentID}

	// TTL is the cancellation mechanism for queued work; re-check right
	// before acting.
	if spec.expired() {
		res.Status = "error"
		res.Error = ErrTaskExpired.Error()
		c.logger.Debug("dropping expired task", "agent_id", spec.AgentID)
		return res
	}

	c.markInProgress(spec)

	res.Compression = Compress(spec.Input)
	inTokens := estimateTokens(spec.Input)
	if inTokens == 0 && len(spec.Input) > 0 {
		inTokens = 1
	}

	output, retries, err := c.invokeWithRetry(ctx, spec, sessionID)
	res.Retries = retries

	outTokens := estimateTokens(output)
	c.tokens.Update(spec.AgentID, inTokens, outTokens)
	res.TokenUsage = AgentTokens{Input: inTokens, Output: outTokens}

	if err != nil {
		res.Status = "error"
		res.Error = err.Error()
		c.finishLedger(spec, task.StatusFailed, res.Error)
		c.notify(spec, res)
		return res
	}

	res.Status = "success"
	res.Output = output
	res.ArtifactRef = c.storeArtifact(spec, sessionID, output)
	c.mergeState(spec, sessionID, res)
	c.finishLedger(spec, task.StatusCompleted, output)
	c.notify(spec, res)
	return res
}

// invokeWithRetry drives the attempt loop: timeouts and transient errors
// back off exponentially and retry until MaxAttempts, recording a history
// entry per attempt. It returns the successful output and the number of
// retries consumed (attempts minus one).
func (c *Coordinator) invokeWithRetry(ctx context.Context, spec TaskSpec, sessionID string) (map[string]any, int, error) {
	bo := c.retry.NewBackOff()
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		start := time.Now()
		output, err := c.invokeOnce(ctx, spec)
		dur := time.Since(start)

		if err == nil {
			c.record(sessionID, HistoryEntry{
				AgentID: spec.AgentID, TaskType: spec.Type, Outcome: OutcomeSuccess,
				Attempt: attempt, At: time.Now().UTC(), Duration: dur,
			})
			c.resetErrRun(spec.AgentID)
			return output, attempt, nil
		}

		outcome := OutcomeError
		if errors.Is(err, ErrInvocationTimeout) {
			outcome = OutcomeTimeout
		}
		c.record(sessionID, HistoryEntry{
			AgentID: spec.AgentID, TaskType: spec.Type, Outcome: outcome,
			Attempt: attempt, Error: err.Error(), At: time.Now().UTC(), Duration: dur,
		})
		c.bumpErrRun(spec.AgentID)
		lastErr = err

		// The breaker being open means more attempts are pointless until the
		// cool-down passes; fail the task instead of burning retries.
		if errors.Is(err, ErrCircuitOpen) {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if attempt == maxAttempts-1 {
			break
		}

		delay := bo.NextBackOff()
		if rl, ok := c.logger.(*logging.RelayLogger); ok {
			rl.LogRetry(spec.AgentID, attempt+1, delay, err)
		} else {
			c.logger.Warn("retrying agent invocation", "agent_id", spec.AgentID, "attempt", attempt+1, "backoff", delay)
		}
		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, maxAttempts - 1, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

// invokeOnce runs a single attempt under the per-attempt timeout. The
// executor is called on its own goroutine so a backend that ignores ctx
// still cannot hold the attempt past the deadline.
func (c *Coordinator) invokeOnce(ctx context.Context, spec TaskSpec) (map[string]any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		out map[string]any
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{nil, fmt.Errorf("executor panic: %v", r)}
			}
		}()
		out, err := c.executor.Run(attemptCtx, spec.AgentID, spec.Type, spec.Input)
		ch <- outcome{out, err}
	}()

	select {
	case o := <-ch:
		return o.out, o.err
	case <-attemptCtx.Done():
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrInvocationTimeout, c.timeout)
		}
		return nil, attemptCtx.Err()
	}
}

// TokenUsage returns a snapshot of the session ledger.
func (c *Coordinator) TokenUsage() UsageSnapshot {
	return c.tokens.Snapshot()
}

// History returns a copy of the attempt history recorded for a session.
func (c *Coordinator) History(sessionID string) []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]HistoryEntry(nil), c.history[sessionID]...)
}

func (c *Coordinator) record(sessionID string, e HistoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history[sessionID] = append(c.history[sessionID], e)
}

func (c *Coordinator) bumpErrRun(agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errRuns[agentID]++
}

func (c *Coordinator) resetErrRun(agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errRuns[agentID] = 0
}

// ConsecutiveFailures reports the agent's current unbroken failure run.
func (c *Coordinator) ConsecutiveFailures(agentID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errRuns[agentID]
}

func (c *Coordinator) markInProgress(spec TaskSpec) {
	if c.tasks == nil || spec.TaskID == "" {
		return
	}
	status := task.StatusInProgress
	if _, err := c.tasks.Update(spec.TaskID, task.Update{Status: &status}); err != nil {
		c.logger.Warn("ledger update failed", "task_id", spec.TaskID, "error", err.Error())
	}
}

func (c *Coordinator) finishLedger(spec TaskSpec, status task.Status, result any) {
	if c.tasks == nil || spec.TaskID == "" {
		return
	}
	var err error
	if status == task.StatusCompleted {
		_, err = c.tasks.Complete(spec.TaskID, result)
	} else {
		_, err = c.tasks.Update(spec.TaskID, task.Update{Status: &status, Result: result})
	}
	if err != nil {
		c.logger.Warn("ledger update failed", "task_id", spec.TaskID, "error", err.Error())
	}
}

// storeArtifact hands the output to the artifact collaborator and returns
// the opaque reference, or "" when no store is wired.
func (c *Coordinator) storeArtifact(spec TaskSpec, sessionID string, output map[string]any) string {
	if c.artifacts == nil {
		return ""
	}
	data, err := json.Marshal(output)
	if err != nil {
		c.logger.Warn("artifact marshal failed", "agent_id", spec.AgentID, "error", err.Error())
		return ""
	}
	ref, err := c.artifacts.Store(sessionID, spec.AgentID, spec.Type, data, map[string]any{
		"task_type": spec.Type,
	})
	if err != nil {
		c.logger.Warn("artifact store failed", "agent_id", spec.AgentID, "error", err.Error())
		return ""
	}
	return ref
}

// mergeState publishes the result into session-scoped shared state.
func (c *Coordinator) mergeState(spec TaskSpec, sessionID string, res Result) {
	if c.state == nil {
		return
	}
	delta := map[string]any{
		"agent:" + spec.AgentID: map[string]any{
			"status":       res.Status,
			"task_type":    spec.Type,
			"artifact_ref": res.ArtifactRef,
		},
	}
	if err := c.state.Update(sessionID, delta); err != nil {
		c.logger.Warn("shared state update failed", "session_id", sessionID, "error", err.Error())
	}
}

// notify enqueues a result message to the reply target through the router.
func (c *Coordinator) notify(spec TaskSpec, res Result) {
	if c.router == nil || spec.ReplyTo == "" {
		return
	}
	payload := map[string]any{
		"agent_id": spec.AgentID,
		"status":   res.Status,
	}
	if res.Error != "" {
		payload["error"] = res.Error
	}
	if res.ArtifactRef != "" {
		payload["artifact_ref"] = res.ArtifactRef
	}
	msg := protocol.NewDataMessage("agent", spec.AgentID, payload)
	msg.Recipients = []protocol.Address{protocol.Address(spec.ReplyTo)}
	if !c.router.Enqueue(msg) {
		c.logger.Warn("result notification dropped", "reply_to", spec.ReplyTo)
	}
}
