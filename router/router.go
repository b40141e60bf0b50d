package router

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/peregrine-ai/a2arelay/logging"
	"github.com/peregrine-ai/a2arelay/protocol"
)

// AgentStatus is the liveness state of a registered agent.
type AgentStatus string

const (
	// StatusActive marks an agent eligible for delivery and broadcast.
	StatusActive AgentStatus = "active"
	// StatusInactive marks an agent that stopped heartbeating. Inactive
	// agents keep their registration but receive no broadcast traffic.
	StatusInactive AgentStatus = "inactive"
)

// AgentRecord is the router-owned registration entry for one agent.
type AgentRecord struct {
	AgentID       string         `json:"agent_id"`
	Info          map[string]any `json:"info,omitempty"`
	RegisteredAt  time.Time      `json:"registered_at"`
	LastHeartbeat time.Time      `json:"last_heartbeat"`
	Status        AgentStatus    `json:"status"`
}

var (
	// ErrUnknownAgent is returned for operations on an unregistered agent id.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrAgentExists is returned when registering an id that is already taken.
	ErrAgentExists = errors.New("agent already registered")
)

// Options holds configuration overrides passed to New().
type Options struct {
	// QueueSize bounds the shared inbound queue drained by the dispatch loop.
	QueueSize int
	// MailboxSize bounds each agent's delivery mailbox.
	MailboxSize int
	// PollInterval is how often the dispatch loop re-checks for shutdown
	// while the inbound queue is idle.
	PollInterval time.Duration
	// Logger receives routing diagnostics.
	Logger logging.Logger
}

// Router is the agent registry plus message dispatcher. All methods are safe
// for concurrent use. The zero value is not usable; construct with New.
type Router struct {
	mu        sync.RWMutex
	agents    map[string]*AgentRecord
	mailboxes map[string]chan protocol.Message
	handlers  map[string]chan struct{} // per-agent handler drain stop signals

	inbound      chan protocol.Message
	mailboxSize  int
	pollInterval time.Duration
	logger       logging.Logger

	lifecycle sync.Mutex
	stopCh    chan struct{}
	done      chan struct{}
	running   bool
}

// New constructs a Router with optional overrides.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		QueueSize:    256,
		MailboxSize:  64,
		PollInterval: 100 * time.Millisecond,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{
		agents:       make(map[string]*AgentRecord),
		mailboxes:    make(map[string]chan protocol.Message),
		handlers:     make(map[string]chan struct{}),
		inbound:      make(chan protocol.Message, opts.QueueSize),
		mailboxSize:  opts.MailboxSize,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
}

// RegisterAgent adds an agent to the registry and allocates its mailbox.
func (r *Router) RegisterAgent(agentID string, info map[string]any) error {
	if agentID == "" {
		return errors.New("agent id is required")
	}
	if protocol.Address(agentID).IsBroadcast() {
		return fmt.Errorf("agent id %q is reserved", agentID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agentID]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, agentID)
	}
	now := time.Now().UTC()
	r.agents[agentID] = &AgentRecord{
		AgentID:       agentID,
		Info:          info,
		RegisteredAt:  now,
		LastHeartbeat: now,
		Status:        StatusActive,
	}
	r.mailboxes[agentID] = make(chan protocol.Message, r.mailboxSize)
	r.logger.Info("agent registered", "agent_id", agentID)
	return nil
}

// UnregisterAgent removes an agent, its mailbox and any draining handler.
func (r *Router) UnregisterAgent(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[agentID]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	if stop, ok := r.handlers[agentID]; ok {
		close(stop)
		delete(r.handlers, agentID)
	}
	delete(r.agents, agentID)
	delete(r.mailboxes, agentID)
	r.logger.Info("agent unregistered", "agent_id", agentID)
	return nil
}

// UpdateHeartbeat refreshes the agent's liveness timestamp and reactivates it.
func (r *Router) UpdateHeartbeat(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, exists := r.agents[agentID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	rec.LastHeartbeat = time.Now().UTC()
	rec.Status = StatusActive
	return nil
}

// MarkStale transitions agents whose last heartbeat is older than maxAge to
// inactive. Returns the number of agents transitioned.
func (r *Router) MarkStale(maxAge time.Duration) int {
	cutoff := time.Now().UTC().Add(-maxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.agents {
		if rec.Status == StatusActive && rec.LastHeartbeat.Before(cutoff) {
			rec.Status = StatusInactive
			n++
		}
	}
	return n
}

// Agent returns a copy of the registration record for the given id.
func (r *Router) Agent(agentID string) (AgentRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[agentID]
	if !ok {
		return AgentRecord{}, false
	}
	return *rec, true
}

// Mailbox returns the agent's receive channel for pull-style consumption.
func (r *Router) Mailbox(agentID string) (<-chan protocol.Message, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mb, ok := r.mailboxes[agentID]
	return mb, ok
}

// RegisterHandler attaches a push-style consumer: a goroutine drains the
// agent's mailbox and invokes fn per message until the agent unregisters or
// the handler is replaced. Delivery still goes through the mailbox, so
// backpressure is identical to pull consumption.
func (r *Router) RegisterHandler(agentID string, fn func(protocol.Message)) error {
	r.mu.Lock()
	mb, ok := r.mailboxes[agentID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	if prev, ok := r.handlers[agentID]; ok {
		close(prev)
	}
	stop := make(chan struct{})
	r.handlers[agentID] = stop
	r.mu.Unlock()

	go func() {
		for {
			select {
			case <-stop:
				return
			case msg, ok := <-mb:
				if !ok {
					return
				}
				fn(msg)
			}
		}
	}()
	return nil
}

// Enqueue places a message on the inbound queue for the dispatch loop.
// Returns false when the queue is full.
func (r *Router) Enqueue(msg protocol.Message) bool {
	select {
	case r.inbound <- msg:
		return true
	default:
		r.logger.Warn("inbound queue full, dropping message", "message_id", msg.ID)
		return false
	}
}

// RouteMessage validates and dispatches a single envelope. It returns true
// iff at least one delivery succeeded; it never returns an error.
func (r *Router) RouteMessage(msg protocol.Message) bool {
	if errs := msg.Validate(); len(errs) > 0 {
		r.logger.Warn("dropping invalid message", "message_id", msg.ID, "errors", errors.Join(errs...).Error())
		return false
	}
	if msg.IsExpired() {
		r.logger.Debug("dropping expired message", "message_id", msg.ID)
		return false
	}

	switch msg.Type {
	case protocol.MessageTypeDiscovery:
		return r.handleDiscovery(msg)
	case protocol.MessageTypeHeartbeat:
		if err := r.UpdateHeartbeat(msg.Sender); err != nil {
			r.logger.Warn("heartbeat from unknown agent", "agent_id", msg.Sender)
			return false
		}
		return true
	default:
		return r.dispatch(msg)
	}
}

// dispatch fans the message out to its recipients. Broadcast reaches every
// active agent; unknown recipients are logged and skipped.
func (r *Router) dispatch(msg protocol.Message) bool {
	delivered := 0
	for _, recipient := range msg.Recipients {
		if recipient.IsBroadcast() {
			for _, id := range r.activeAgentIDs() {
				if r.deliver(id, msg) {
					delivered++
				}
			}
			continue
		}
		if _, known := r.Agent(string(recipient)); !known {
			r.logger.Warn("recipient not found", "message_id", msg.ID, "recipient", string(recipient))
			continue
		}
		if r.deliver(string(recipient), msg) {
			delivered++
		}
	}
	ok := delivered > 0
	if rl, isRelay := r.logger.(*logging.RelayLogger); isRelay {
		rl.LogRoute(msg.ID, string(msg.Type), len(msg.Recipients), ok)
	}
	return ok
}

// deliver enqueues the message into one agent's mailbox. Expiry is re-checked
// immediately before the send so in-flight messages can be cancelled by TTL.
func (r *Router) deliver(agentID string, msg protocol.Message) bool {
	if msg.IsExpired() {
		r.logger.Debug("dropping expired message before delivery", "message_id", msg.ID)
		return false
	}
	r.mu.RLock()
	mb, ok := r.mailboxes[agentID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case mb <- msg:
		return true
	default:
		r.logger.Warn("mailbox full, dropping message", "agent_id", agentID, "message_id", msg.ID)
		return false
	}
}

// handleDiscovery answers a discovery request with the agent directory,
// addressed back to the sender.
func (r *Router) handleDiscovery(msg protocol.Message) bool {
	r.mu.RLock()
	directory := make([]any, 0, len(r.agents))
	for _, rec := range r.agents {
		directory = append(directory, map[string]any{
			"agent_id": rec.AgentID,
			"info":     rec.Info,
			"status":   string(rec.Status),
		})
	}
	r.mu.RUnlock()

	resp := protocol.NewResponse(msg, []protocol.Part{
		protocol.NewDataPart(map[string]any{"agents": directory}),
	}, 200)
	resp.Sender = "router"
	return r.deliver(msg.Sender, resp)
}

func (r *Router) activeAgentIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.agents))
	for id, rec := range r.agents {
		if rec.Status == StatusActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// Start launches the background dispatch loop draining the inbound queue.
// Calling Start on a running router is a no-op.
func (r *Router) Start() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if r.running {
		return
	}
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	r.running = true
	go r.dispatchLoop(r.stopCh, r.done)
	r.logger.Info("router started")
}

// Stop terminates the dispatch loop and waits for it to exit. Messages left
// on the inbound queue stay queued for a later Start.
func (r *Router) Stop() {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	if !r.running {
		return
	}
	close(r.stopCh)
	<-r.done
	r.running = false
	r.logger.Info("router stopped")
}

// dispatchLoop pulls from the inbound queue with a short poll timeout so a
// Stop is observed promptly even when the queue is idle.
func (r *Router) dispatchLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case msg := <-r.inbound:
			r.RouteMessage(msg)
		case <-ticker.C:
			// idle poll, loop back to re-check stop
		}
	}
}

// Stats is a point-in-time snapshot of the router's state.
type Stats struct {
	TotalAgents  int      `json:"total_agents"`
	ActiveAgents int      `json:"active_agents"`
	QueueDepth   int      `json:"queue_depth"`
	AgentIDs     []string `json:"agent_ids"`
}

// Stats returns routing statistics.
func (r *Router) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Stats{
		TotalAgents: len(r.agents),
		QueueDepth:  len(r.inbound),
		AgentIDs:    make([]string, 0, len(r.agents)),
	}
	for id, rec := range r.agents {
		s.AgentIDs = append(s.AgentIDs, id)
		if rec.Status == StatusActive {
			s.ActiveAgents++
		}
	}
	return s
}
