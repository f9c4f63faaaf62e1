// Package tools implements the functions the reasoning model may call.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/metrics"
)

var (
	// ErrUnknownTool is returned for a tool name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when tool arguments fail to decode or
	// validate.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Invocation is a tool call made on behalf of a customer.
type Invocation struct {
	CustomerID string
	Name       string
	Arguments  json.RawMessage
}

// Result is what a tool hands back. Payload is fed to the model; Handover
// asks the orchestrator to flag the conversation for a human.
type Result struct {
	Payload  string
	Handover bool
	Reason   string
}

// Tool is a single callable function.
type Tool interface {
	Definition() llm.ToolDefinition
	Execute(ctx context.Context, inv Invocation) (*Result, error)
}

// Registry dispatches invocations to registered tools.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry holding tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	name := t.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns the declared tools in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the tool named by inv.
func (r *Registry) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	t, ok := r.tools[inv.Name]
	if !ok {
		metrics.RecordToolCall("unknown", "unknown")
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, inv.Name)
	}

	res, err := t.Execute(ctx, inv)
	switch {
	case errors.Is(err, ErrInvalidArguments):
		metrics.RecordToolCall(inv.Name, "invalid")
	case err != nil:
		metrics.RecordToolCall(inv.Name, "error")
	default:
		metrics.RecordToolCall(inv.Name, "ok")
	}
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", inv.Name, err)
	}
	return res, nil
}

// decodeArgs unmarshals raw into dst and validates it.
func decodeArgs(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func payload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool payload: %w", err)
	}
	return string(data), nil
}
