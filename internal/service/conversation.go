// Package service provides business logic for the sales assistant.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/config"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/tools"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/metrics"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/tracing"
)

// ToolDispatcher declares and runs tools.
type ToolDispatcher interface {
	Definitions() []llm.ToolDefinition
	Execute(ctx context.Context, inv tools.Invocation) (*tools.Result, error)
}

// ConversationConfig tunes the orchestrator.
type ConversationConfig struct {
	Model            string
	ContextWindow    int
	ReasoningTimeout time.Duration
	MinOrderAmount   float64
}

// Inbound is a customer text message.
type Inbound struct {
	CustomerID    string
	Text          string
	DisplayName   string
	PhoneNumberID string
}

// Reply is the text to deliver back to the customer.
type Reply struct {
	CustomerID    string
	PhoneNumberID string
	Text          string
	Handover      bool
	Fallback      bool
}

// ConversationService orchestrates one inbound message end to end.
type ConversationService struct {
	profiles  store.ProfileStore
	history   store.HistoryStore
	llmClient llm.Client
	tools     ToolDispatcher
	scheduler Scheduler
	business  *config.Business
	cfg       ConversationConfig
	logger    *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	profiles store.ProfileStore,
	history store.HistoryStore,
	llmClient llm.Client,
	dispatcher ToolDispatcher,
	scheduler Scheduler,
	business *config.Business,
	cfg ConversationConfig,
	log *logger.Logger,
) *ConversationService {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 15
	}
	if cfg.ReasoningTimeout <= 0 {
		cfg.ReasoningTimeout = 8 * time.Second
	}
	return &ConversationService{
		profiles:  profiles,
		history:   history,
		llmClient: llmClient,
		tools:     dispatcher,
		scheduler: scheduler,
		business:  business,
		cfg:       cfg,
		logger:    log.Named("conversation"),
	}
}

// turnResult is the outcome of the reasoning step for one message.
type turnResult struct {
	text     string
	usedTool bool
	handover bool
	fallback bool
}

// HandleInbound processes a customer message and returns the reply to send,
// or nil when the assistant must stay silent. Errors are store failures.
func (s *ConversationService) HandleInbound(ctx context.Context, in Inbound) (*Reply, error) {
	ctx, span := tracing.Tracer().Start(ctx, "conversation.HandleInbound")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", in.CustomerID))

	log := s.logger.With(zap.String("customer_id", in.CustomerID))

	profile, err := s.profiles.GetOrCreate(ctx, in.CustomerID, in.DisplayName)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	if profile.HandoverRequested {
		log.Debug("conversation is with a human, staying silent")
		metrics.InboundMessagesTotal.WithLabelValues("silenced").Inc()
		return nil, nil
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		metrics.InboundMessagesTotal.WithLabelValues("empty").Inc()
		return nil, nil
	}
	metrics.InboundMessagesTotal.WithLabelValues("text").Inc()

	if _, err := s.history.Append(ctx, in.CustomerID, model.RoleUser, text); err != nil {
		return nil, fmt.Errorf("failed to store inbound message: %w", err)
	}

	recent, err := s.history.Recent(ctx, in.CustomerID, s.cfg.ContextWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	window := BuildContextWindow(recent, text)

	result, err := s.reason(ctx, log, profile, window)
	if err != nil {
		return nil, err
	}

	if _, err := s.history.Append(ctx, in.CustomerID, model.RoleAssistant, result.text); err != nil {
		return nil, fmt.Errorf("failed to store reply: %w", err)
	}

	if !result.usedTool && !result.fallback {
		s.scheduleReconcile(ctx, log, in.CustomerID, window, result.text, text)
	}

	span.SetAttributes(
		attribute.Bool("reply.handover", result.handover),
		attribute.Bool("reply.fallback", result.fallback),
	)

	return &Reply{
		CustomerID:    in.CustomerID,
		PhoneNumberID: in.PhoneNumberID,
		Text:          result.text,
		Handover:      result.handover,
		Fallback:      result.fallback,
	}, nil
}

// reason runs the reasoning step with at most one tool round trip. Model
// and tool failures turn into the fallback reply; the only returned error
// is a failure to persist a handover.
func (s *ConversationService) reason(ctx context.Context, log *logger.Logger, profile *model.CustomerProfile, window []model.Turn) (turnResult, error) {
	fallback := turnResult{text: s.business.FallbackReply, fallback: true}

	reasonCtx, cancel := context.WithTimeout(ctx, s.cfg.ReasoningTimeout)
	defer cancel()

	req := &llm.CompletionRequest{
		Model:       s.cfg.Model,
		System:      BuildSystemInstruction(s.business, profile, s.cfg.MinOrderAmount),
		Messages:    toLLMMessages(window),
		Tools:       s.tools.Definitions(),
		MaxTokens:   600,
		Temperature: 0.7,
	}

	resp, err := s.complete(reasonCtx, req)
	if err != nil {
		log.Warn("reasoning failed, using fallback reply", zap.Error(err))
		return fallback, nil
	}

	if !resp.HasToolCall() {
		if strings.TrimSpace(resp.Content) == "" {
			log.Warn("reasoning returned no text, using fallback reply")
			return fallback, nil
		}
		return turnResult{text: resp.Content}, nil
	}

	call := resp.ToolCall
	if resp.ExtraToolCalls > 0 {
		log.Warn("ignoring extra tool calls", zap.String("tool", call.Name), zap.Int("ignored", resp.ExtraToolCalls))
	}

	res, err := s.tools.Execute(reasonCtx, tools.Invocation{
		CustomerID: profile.ID,
		Name:       call.Name,
		Arguments:  call.Arguments,
	})
	if err != nil {
		log.Warn("tool failed, using fallback reply", zap.String("tool", call.Name), zap.Error(err))
		fallback.usedTool = true
		return fallback, nil
	}

	result := turnResult{usedTool: true}
	if res.Handover {
		if err := s.profiles.SetHandover(ctx, profile.ID, true, res.Reason); err != nil {
			return turnResult{}, fmt.Errorf("failed to persist handover: %w", err)
		}
		metrics.HandoversTotal.Inc()
		log.Info("conversation handed over", zap.String("reason", res.Reason))
		result.handover = true
	}

	follow := *req
	follow.Messages = append(append([]llm.ChatMessage{}, req.Messages...),
		llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Content, ToolCall: call},
		llm.ChatMessage{Role: llm.RoleTool, ToolResult: &llm.ToolResult{CallID: call.ID, Name: call.Name, Content: res.Payload}},
	)
	follow.DisableTools = true

	final, err := s.complete(reasonCtx, &follow)
	switch {
	case err == nil && strings.TrimSpace(final.Content) != "":
		result.text = final.Content
	case result.handover:
		result.text = s.business.HandoverReply
	default:
		log.Warn("reasoning after tool failed, using fallback reply", zap.String("tool", call.Name), zap.Error(err))
		result.text = s.business.FallbackReply
		result.fallback = true
	}

	return result, nil
}

func (s *ConversationService) complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := s.llmClient.Complete(ctx, req)
	if err != nil {
		metrics.RecordLLMCall("reasoning", req.Model, "error", time.Since(start).Seconds(), 0, 0)
		return nil, err
	}
	metrics.RecordLLMCall("reasoning", resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	return resp, nil
}

func (s *ConversationService) scheduleReconcile(ctx context.Context, log *logger.Logger, customerID string, window []model.Turn, reply, latest string) {
	turns := make([]model.Turn, 0, len(window)+1)
	turns = append(turns, window...)
	turns = append(turns, model.Turn{Role: model.RoleAssistant, Text: reply})

	job := model.ReconcileJob{
		ID:            uuid.Must(uuid.NewV7()).String(),
		CustomerID:    customerID,
		Turns:         turns,
		LatestMessage: latest,
		RequestedAt:   time.Now().UTC(),
	}

	if err := s.scheduler.Schedule(ctx, job); err != nil {
		log.Warn("failed to schedule memory reconciliation", zap.String("job_id", job.ID), zap.Error(err))
	}
}
