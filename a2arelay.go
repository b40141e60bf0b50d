// Package a2arelay provides a high-level façade over the router, task ledger
// and coordinator, enabling rapid construction of agent-to-agent systems.
// Most applications interact with this package by:
//  1. Creating a Relay via New() with an AgentExecutor (optionally overriding
//     default in-memory stores)
//  2. Registering agents and handlers on the Router
//  3. Executing task batches through the Coordinator
//
// All defaults are safe for local development and testing; production
// deployments typically supply durable store implementations and a
// structured logger.
package a2arelay

import (
	"context"
	"time"

	"github.com/peregrine-ai/a2arelay/artifact"
	"github.com/peregrine-ai/a2arelay/content"
	"github.com/peregrine-ai/a2arelay/coordinator"
	"github.com/peregrine-ai/a2arelay/logging"
	"github.com/peregrine-ai/a2arelay/protocol"
	"github.com/peregrine-ai/a2arelay/router"
	"github.com/peregrine-ai/a2arelay/session"
	"github.com/peregrine-ai/a2arelay/task"
)

// Options configures the Relay instance.
type Options struct {
	// MaxConcurrent bounds simultaneous executor invocations.
	MaxConcurrent int64
	// InvocationTimeout is the per-attempt wall-clock bound.
	InvocationTimeout time.Duration
	// Retry is the shared retry/backoff policy.
	Retry coordinator.RetryPolicy
	// QueueSize bounds the router's inbound queue.
	QueueSize int
	// MailboxSize bounds each agent's mailbox.
	MailboxSize int
	// Stores (default to in-memory implementations if not provided).
	Artifacts coordinator.ArtifactStore
	State     coordinator.SharedState
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Relay aggregates a wired router, task ledger, content registry and
// coordinator sharing one executor and one set of stores.
type Relay struct {
	router      *router.Router
	tasks       *task.Manager
	coordinator *coordinator.Coordinator
	content     *content.Registry
}

// New creates a new Relay around the given executor with optional overrides.
// Any unset service defaults to an in-memory implementation.
func New(executor coordinator.AgentExecutor, optFns ...func(o *Options)) *Relay {
	opts := Options{
		MaxConcurrent:     5,
		InvocationTimeout: 300 * time.Second,
		Retry:             coordinator.DefaultRetryPolicy(),
		QueueSize:         256,
		MailboxSize:       64,
		Artifacts:         artifact.NewInMemoryStore(),
		State:             session.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	rt := router.New(func(o *router.Options) {
		o.QueueSize = opts.QueueSize
		o.MailboxSize = opts.MailboxSize
		o.Logger = opts.Logger
	})
	tm := task.NewManager(func(o *task.ManagerOptions) {
		o.Logger = opts.Logger
	})
	coord := coordinator.New(executor, func(o *coordinator.Options) {
		o.MaxConcurrent = opts.MaxConcurrent
		o.InvocationTimeout = opts.InvocationTimeout
		o.Retry = opts.Retry
		o.Router = rt
		o.Tasks = tm
		o.Artifacts = opts.Artifacts
		o.State = opts.State
		o.Logger = opts.Logger
	})

	return &Relay{
		router:      rt,
		tasks:       tm,
		coordinator: coord,
		content:     content.NewRegistry(func(o *content.Options) { o.Logger = opts.Logger }),
	}
}

// Router exposes the agent registry and dispatcher.
func (r *Relay) Router() *router.Router { return r.router }

// Tasks exposes the task ledger.
func (r *Relay) Tasks() *task.Manager { return r.tasks }

// Coordinator exposes the execution engine.
func (r *Relay) Coordinator() *coordinator.Coordinator { return r.coordinator }

// Content exposes the content handler registry.
func (r *Relay) Content() *content.Registry { return r.content }

// Start launches the router's dispatch loop.
func (r *Relay) Start() { r.router.Start() }

// Stop terminates the router's dispatch loop.
func (r *Relay) Stop() { r.router.Stop() }

// Send enqueues a message for asynchronous routing.
func (r *Relay) Send(msg protocol.Message) bool { return r.router.Enqueue(msg) }

// ExecuteParallel runs a batch of task specs under the coordinator.
func (r *Relay) ExecuteParallel(ctx context.Context, specs []coordinator.TaskSpec, sessionID string) []coordinator.Result {
	return r.coordinator.ExecuteParallel(ctx, specs, sessionID)
}

// TokenUsage returns the coordinator's token ledger snapshot.
func (r *Relay) TokenUsage() coordinator.UsageSnapshot {
	return r.coordinator.TokenUsage()
}
