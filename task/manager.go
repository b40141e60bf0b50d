package task

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/peregrine-ai/a2arelay/internal/util"
	"github.com/peregrine-ai/a2arelay/logging"
)

// ErrNotFound is returned for operations on an unknown task id.
var ErrNotFound = errors.New("task not found")

// ErrTerminal is returned when mutating a task already in a terminal state.
var ErrTerminal = errors.New("task is in a terminal state")

// CreateOptions holds optional fields for Create.
type CreateOptions struct {
	Description string
	AssignedTo  []string
	Priority    int
	DueAt       *time.Time
	Metadata    map[string]any
}

// Update describes a partial mutation. Nil fields are left untouched;
// Metadata entries are merged into the existing map.
type Update struct {
	Title       *string
	Description *string
	AssignedTo  []string
	Status      *Status
	Priority    *int
	DueAt       *time.Time
	Result      any
	Metadata    map[string]any
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status   Status
	Assignee string
}

// ManagerOptions holds configuration overrides passed to NewManager().
type ManagerOptions struct {
	Logger logging.Logger
}

// Manager is the in-memory task registry. Safe for concurrent use. Tasks
// past their due time are transitioned to expired lazily on read.
type Manager struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	logger logging.Logger
}

// NewManager constructs an empty task registry.
func NewManager(optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{tasks: make(map[string]*Task), logger: opts.Logger}
}

// Create registers a new pending task and returns a copy of it.
func (m *Manager) Create(title, createdBy string, optFns ...func(o *CreateOptions)) (Task, error) {
	if title == "" {
		return Task{}, errors.New("task title is required")
	}
	opts := CreateOptions{Priority: 3}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Priority < 1 || opts.Priority > 5 {
		return Task{}, fmt.Errorf("priority %d out of range [1,5]", opts.Priority)
	}
	now := time.Now().UTC()
	t := &Task{
		ID:          util.NewID(),
		Title:       title,
		Description: opts.Description,
		CreatedBy:   createdBy,
		AssignedTo:  append([]string(nil), opts.AssignedTo...),
		Status:      StatusPending,
		Priority:    opts.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueAt:       opts.DueAt,
		Metadata:    opts.Metadata,
	}
	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()
	m.logger.Debug("task created", "task_id", t.ID, "title", title)
	return t.clone(), nil
}

// Get returns a copy of the task.
func (m *Manager) Get(id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.expireLocked(t)
	return t.clone(), nil
}

// Update merges the partial fields into the task and bumps its updated
// timestamp. Terminal tasks reject all mutations.
func (m *Manager) Update(id string, upd Update) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.expireLocked(t)
	if t.Status.Terminal() {
		return Task{}, fmt.Errorf("%w: %s (%s)", ErrTerminal, id, t.Status)
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.AssignedTo != nil {
		t.AssignedTo = append([]string(nil), upd.AssignedTo...)
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Priority != nil {
		if *upd.Priority < 1 || *upd.Priority > 5 {
			return Task{}, fmt.Errorf("priority %d out of range [1,5]", *upd.Priority)
		}
		t.Priority = *upd.Priority
	}
	if upd.DueAt != nil {
		t.DueAt = upd.DueAt
	}
	if upd.Result != nil {
		t.Result = upd.Result
	}
	if upd.Metadata != nil {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any, len(upd.Metadata))
		}
		for k, v := range upd.Metadata {
			t.Metadata[k] = v
		}
	}
	t.UpdatedAt = time.Now().UTC()
	return t.clone(), nil
}

// Complete marks the task completed and stores its result.
func (m *Manager) Complete(id string, result any) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.expireLocked(t)
	if t.Status.Terminal() {
		return Task{}, fmt.Errorf("%w: %s (%s)", ErrTerminal, id, t.Status)
	}
	now := time.Now().UTC()
	t.Status = StatusCompleted
	t.Result = result
	t.CompletedAt = &now
	t.UpdatedAt = now
	m.logger.Debug("task completed", "task_id", id)
	return t.clone(), nil
}

// List returns copies of the tasks matching the filter, in no particular
// order.
func (m *Manager) List(filter Filter) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, t := range m.tasks {
		m.expireLocked(t)
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Assignee != "" && !assigned(t, filter.Assignee) {
			continue
		}
		out = append(out, t.clone())
	}
	return out
}

// Delete removes a task from the ledger.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.tasks, id)
	return nil
}

// expireLocked applies the lazy due-time transition. Caller holds the write
// lock.
func (m *Manager) expireLocked(t *Task) {
	if t.Status.Terminal() || t.DueAt == nil {
		return
	}
	if time.Now().After(*t.DueAt) {
		t.Status = StatusExpired
		t.UpdatedAt = time.Now().UTC()
		m.logger.Debug("task expired", "task_id", t.ID)
	}
}

func assigned(t *Task, agentID string) bool {
	for _, a := range t.AssignedTo {
		if a == agentID {
			return true
		}
	}
	return false
}
