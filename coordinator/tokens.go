package coordinator

import (
	"fmt"
	"sync"
)

// AgentTokens is the per-agent slice of the token ledger.
type AgentTokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// UsageTotals aggregates the ledger across agents.
type UsageTotals struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// UsageSnapshot is a point-in-time copy of the token ledger.
type UsageSnapshot struct {
	Total   UsageTotals            `json:"total"`
	ByAgent map[string]AgentTokens `json:"by_agent"`
}

// TokenUsage is a running ledger of estimated input/output token counts,
// broken down per agent. Safe for concurrent use; the coordinator owns one
// ledger per session.
type TokenUsage struct {
	mu      sync.Mutex
	input   int
	output  int
	byAgent map[string]AgentTokens
}

// NewTokenUsage returns an empty ledger.
func NewTokenUsage() *TokenUsage {
	return &TokenUsage{byAgent: make(map[string]AgentTokens)}
}

// Update adds input/output token counts for an agent.
func (u *TokenUsage) Update(agentID string, input, output int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.input += input
	u.output += output
	at := u.byAgent[agentID]
	at.Input += input
	at.Output += output
	u.byAgent[agentID] = at
}

// Snapshot returns a copy of the ledger.
func (u *TokenUsage) Snapshot() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()
	snap := UsageSnapshot{
		Total:   UsageTotals{Input: u.input, Output: u.output, Total: u.input + u.output},
		ByAgent: make(map[string]AgentTokens, len(u.byAgent)),
	}
	for k, v := range u.byAgent {
		snap.ByAgent[k] = v
	}
	return snap
}

// estimateTokens applies the len/4 heuristic recursively over strings nested
// in maps and slices. Map keys count too; they are sent to the model.
func estimateTokens(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return len(x) / 4
	case []byte:
		return len(x) / 4
	case map[string]any:
		n := 0
		for k, val := range x {
			n += len(k)/4 + estimateTokens(val)
		}
		return n
	case []any:
		n := 0
		for _, val := range x {
			n += estimateTokens(val)
		}
		return n
	case fmt.Stringer:
		return len(x.String()) / 4
	default:
		return len(fmt.Sprint(x)) / 4
	}
}
