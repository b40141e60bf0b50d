// Package openai provides an AgentExecutor backend over the OpenAI Chat
// Completions API. It renders the task input as a JSON user message, the
// agent/task identity as a system message, and returns the completion text
// plus real token usage from the API response.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/peregrine-ai/a2arelay/coordinator"
)

// Options configure the OpenAI executor. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Executor wraps the OpenAI Chat Completions API behind the
// coordinator.AgentExecutor interface.
type Executor struct {
	client *openai.Client
	opts   Options
}

var _ coordinator.AgentExecutor = (*Executor)(nil)

// NewExecutor creates a new OpenAI executor using the official client.
func NewExecutor(optFns ...func(o *Options)) *Executor {
	client := openai.NewClient()
	return NewExecutorFromClient(&client, optFns...)
}

// NewExecutorFromClient creates a new OpenAI executor from an existing client.
func NewExecutorFromClient(client *openai.Client, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{client: client, opts: opts}
}

// Run implements coordinator.AgentExecutor.
func (e *Executor) Run(ctx context.Context, agentID, taskType string, input map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshal task input: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:               e.opts.Model,
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxCompletionTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf("You are agent %q executing a %q task.", agentID, taskType)),
			openai.UserMessage(string(payload)),
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	return map[string]any{
		"content":       resp.Choices[0].Message.Content,
		"finish_reason": resp.Choices[0].FinishReason,
		"model":         resp.Model,
		"input_tokens":  int(resp.Usage.PromptTokens),
		"output_tokens": int(resp.Usage.CompletionTokens),
	}, nil
}
