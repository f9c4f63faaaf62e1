package tools

import (
	"context"
	"strings"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
)

const defaultEscalationReason = "customer asked for a human"

// EscalateToHuman is the escalate_to_human tool. It only reports the
// handover; the orchestrator persists it.
type EscalateToHuman struct{}

type escalateArgs struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (EscalateToHuman) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "escalate_to_human",
		Description: "Hand the conversation over to the human sales team. Use it when the customer wants to pay, asks for a person, is upset, or needs something you cannot do.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{"type": "string", "description": "Short summary for the sales team"},
			},
			"required": []string{"reason"},
		},
	}
}

func (EscalateToHuman) Execute(_ context.Context, inv Invocation) (*Result, error) {
	var args escalateArgs
	if err := decodeArgs(inv.Arguments, &args); err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(args.Reason)
	if reason == "" {
		reason = defaultEscalationReason
	}

	return &Result{
		Payload:  `{"status":"escalated"}`,
		Handover: true,
		Reason:   reason,
	}, nil
}
