package task

import (
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	// StatusPending means the task is created but not started.
	StatusPending Status = "pending"
	// StatusInProgress means an assignee is working the task.
	StatusInProgress Status = "in_progress"
	// StatusCompleted is the successful terminal state.
	StatusCompleted Status = "completed"
	// StatusFailed is the unsuccessful terminal state.
	StatusFailed Status = "failed"
	// StatusCancelled means the task was withdrawn before completion.
	StatusCancelled Status = "cancelled"
	// StatusExpired means the due time elapsed before a terminal state.
	StatusExpired Status = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Task is a unit of work tracked by the Manager. Priority ranges 1 (lowest)
// to 5 (highest).
type Task struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	CreatedBy   string         `json:"created_by"`
	AssignedTo  []string       `json:"assigned_to,omitempty"`
	Status      Status         `json:"status"`
	Priority    int            `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DueAt       *time.Time     `json:"due_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Result      any            `json:"result,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// clone returns a defensive copy safe for callers to mutate.
func (t *Task) clone() Task {
	cp := *t
	cp.AssignedTo = append([]string(nil), t.AssignedTo...)
	if t.Metadata != nil {
		cp.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
