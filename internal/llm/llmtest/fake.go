// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
)

// ErrExhausted is returned once every scripted response was consumed.
var ErrExhausted = errors.New("llmtest: no scripted response left")

// Step is one scripted reply: either a response or an error.
type Step struct {
	Response *llm.CompletionResponse
	Err      error
}

// Client replays Steps in order and records every request it receives.
type Client struct {
	mu       sync.Mutex
	steps    []Step
	requests []*llm.CompletionRequest
}

// New returns a Client that replays steps.
func New(steps ...Step) *Client {
	return &Client{steps: steps}
}

// Text is a Step answering with plain text.
func Text(content string) Step {
	return Step{Response: &llm.CompletionResponse{Content: content}}
}

// Tool is a Step requesting a tool call.
func Tool(name, args string) Step {
	return Step{Response: &llm.CompletionResponse{
		ToolCall: &llm.ToolCall{ID: "call_" + name, Name: name, Arguments: []byte(args)},
	}}
}

// Fail is a Step returning err.
func Fail(err error) Step {
	return Step{Err: err}
}

func (c *Client) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.steps) == 0 {
		return nil, ErrExhausted
	}

	step := c.steps[0]
	c.steps = c.steps[1:]
	return step.Response, step.Err
}

func (c *Client) Name() string     { return "fake" }
func (c *Client) Models() []string { return []string{"fake"} }

// Requests returns the requests received so far.
func (c *Client) Requests() []*llm.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*llm.CompletionRequest, len(c.requests))
	copy(out, c.requests)
	return out
}
