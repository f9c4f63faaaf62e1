// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Role values used in ChatMessage.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model    string
	System   string
	Messages []ChatMessage
	Tools    []ToolDefinition
	// DisableTools keeps Tools declared but forbids the model from calling them.
	DisableTools bool
	MaxTokens    int
	Temperature  float64
}

// ChatMessage represents a chat message for LLM. An assistant message may
// carry the tool call it made; a tool message carries the result.
type ChatMessage struct {
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ToolDefinition declares a callable tool with a JSON schema for its arguments.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of a tool fed back to the model.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response. When ToolCall is set
// the model asked for a tool and Content is not a reply.
type CompletionResponse struct {
	Content  string
	ToolCall *ToolCall
	// ExtraToolCalls counts tool calls beyond the first, which are ignored.
	ExtraToolCalls int
	Model          string
	TokensIn       int
	TokensOut      int
	StopReason     string
	LatencyMs      int64
}

// HasToolCall reports whether the model requested a tool.
func (r *CompletionResponse) HasToolCall() bool {
	return r != nil && r.ToolCall != nil
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
