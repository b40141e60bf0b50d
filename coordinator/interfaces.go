package coordinator

import "context"

// AgentExecutor is the opaque reasoning capability supplied by the caller.
// The coordinator never assumes a specific backend; implementations live in
// the executor subpackages or in application code.
//
// Run must respect ctx cancellation. The returned map is the agent's result
// payload; a non-nil error marks the attempt failed and retriable.
type AgentExecutor interface {
	Run(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error)
}

// AgentExecutorFunc adapts a function to the AgentExecutor interface.
type AgentExecutorFunc func(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error)

// Run implements AgentExecutor.
func (f AgentExecutorFunc) Run(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
	return f(ctx, agentID, taskType, input)
}

// ArtifactStore persists task outputs outside the coordinator. Store returns
// an opaque reference to the saved artifact.
type ArtifactStore interface {
	Store(sessionID, agentID, artifactType string, data []byte, metadata map[string]any) (string, error)
}

// SharedState merges session-scoped key/value deltas produced by completed
// tasks into state shared across the session's agents.
type SharedState interface {
	Update(sessionID string, delta map[string]any) error
}
