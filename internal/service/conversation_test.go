package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/commerce"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/config"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm/llmtest"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store/storetest"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/tools"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

const customerID = "573001234567"

type recordingScheduler struct {
	mu   sync.Mutex
	jobs []model.ReconcileJob
	err  error
}

func (r *recordingScheduler) Schedule(_ context.Context, job model.ReconcileJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

type staticCatalog []commerce.Product

func (c staticCatalog) SearchProducts(context.Context, commerce.Query) ([]commerce.Product, error) {
	return c, nil
}

type harness struct {
	svc       *ConversationService
	store     *storetest.Store
	llm       *llmtest.Client
	scheduler *recordingScheduler
}

func newHarness(t *testing.T, steps ...llmtest.Step) *harness {
	t.Helper()

	st := storetest.New()
	client := llmtest.New(steps...)
	sched := &recordingScheduler{}
	registry := tools.NewRegistry(
		tools.NewSearchCatalog(staticCatalog{{Title: "Agility Gold 7kg", Price: 80000, Currency: "COP", Available: true}}),
		tools.NewUpdateCart(st, 150000),
		tools.EscalateToHuman{},
	)

	svc := NewConversationService(st, st, client, registry, sched, config.DefaultBusiness(), ConversationConfig{
		Model:            "reasoner",
		ContextWindow:    15,
		ReasoningTimeout: time.Second,
		MinOrderAmount:   150000,
	}, logger.NewNop())

	return &harness{svc: svc, store: st, llm: client, scheduler: sched}
}

func inbound(text string) Inbound {
	return Inbound{CustomerID: customerID, Text: text, DisplayName: "Laura", PhoneNumberID: "1098"}
}

func TestHandleInboundPlainReply(t *testing.T) {
	h := newHarness(t, llmtest.Text("¡Hola Laura! ¿Para qué peludito buscas?"))

	reply, err := h.svc.HandleInbound(context.Background(), inbound("hola, busco comida"))
	require.NoError(t, err)
	require.NotNil(t, reply)

	assert.Equal(t, "¡Hola Laura! ¿Para qué peludito buscas?", reply.Text)
	assert.Equal(t, "1098", reply.PhoneNumberID)
	assert.False(t, reply.Fallback)

	history := h.store.History(customerID)
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, model.RoleAssistant, history[1].Role)

	require.Len(t, h.scheduler.jobs, 1)
	job := h.scheduler.jobs[0]
	assert.Equal(t, customerID, job.CustomerID)
	assert.Equal(t, "hola, busco comida", job.LatestMessage)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, []model.Turn{
		{Role: model.RoleUser, Text: "hola, busco comida"},
		{Role: model.RoleAssistant, Text: "¡Hola Laura! ¿Para qué peludito buscas?"},
	}, job.Turns)

	req := h.llm.Requests()[0]
	assert.Len(t, req.Tools, 3)
	assert.False(t, req.DisableTools)
	assert.Contains(t, req.System, "Laura")
	assert.Contains(t, req.System, "$150.000")
}

func TestHandleInboundSilentDuringHandover(t *testing.T) {
	h := newHarness(t)
	h.store.Put(&model.CustomerProfile{ID: customerID, DisplayName: "Laura", HandoverRequested: true})

	reply, err := h.svc.HandleInbound(context.Background(), inbound("¿hola?"))
	require.NoError(t, err)

	assert.Nil(t, reply)
	assert.Empty(t, h.llm.Requests())
	assert.Empty(t, h.store.History(customerID))
	assert.Empty(t, h.scheduler.jobs)
}

func TestHandleInboundEmptyText(t *testing.T) {
	h := newHarness(t)

	reply, err := h.svc.HandleInbound(context.Background(), inbound("   "))
	require.NoError(t, err)

	assert.Nil(t, reply)
	assert.Empty(t, h.store.History(customerID))

	// the profile still exists
	_, err = h.store.Get(context.Background(), customerID)
	assert.NoError(t, err)
}

func TestHandleInboundEscalation(t *testing.T) {
	h := newHarness(t,
		llmtest.Tool("escalate_to_human", `{"reason":"quiere pagar"}`),
		llmtest.Text(""),
	)
	ctx := context.Background()

	reply, err := h.svc.HandleInbound(ctx, inbound("listo, ¿cómo pago?"))
	require.NoError(t, err)
	require.NotNil(t, reply)

	assert.True(t, reply.Handover)
	assert.Equal(t, config.DefaultBusiness().HandoverReply, reply.Text)
	assert.Empty(t, h.scheduler.jobs)

	p, err := h.store.Get(ctx, customerID)
	require.NoError(t, err)
	assert.True(t, p.HandoverRequested)
	assert.Equal(t, "quiere pagar", p.HandoverReason)
	assert.NotNil(t, p.HandoverAt)

	reqs := h.llm.Requests()
	require.Len(t, reqs, 2)
	assert.True(t, reqs[1].DisableTools)

	// later messages are left to the human
	reply, err = h.svc.HandleInbound(ctx, inbound("¿sigues ahí?"))
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestHandleInboundCatalogRoundTrip(t *testing.T) {
	h := newHarness(t,
		llmtest.Tool("search_catalog", `{"keyword":"agility"}`),
		llmtest.Text("Tenemos Agility Gold 7kg a $80.000 🐶"),
	)

	reply, err := h.svc.HandleInbound(context.Background(), inbound("¿tienen agility?"))
	require.NoError(t, err)

	assert.Equal(t, "Tenemos Agility Gold 7kg a $80.000 🐶", reply.Text)
	assert.False(t, reply.Handover)
	assert.Empty(t, h.scheduler.jobs)

	reqs := h.llm.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.GreaterOrEqual(t, len(msgs), 3)
	assert.NotNil(t, msgs[len(msgs)-2].ToolCall)
	result := msgs[len(msgs)-1].ToolResult
	require.NotNil(t, result)
	assert.Equal(t, "call_search_catalog", result.CallID)
	assert.Contains(t, result.Content, "Agility Gold 7kg")
}

func TestHandleInboundCartTool(t *testing.T) {
	h := newHarness(t,
		llmtest.Tool("update_cart", `{"items":[{"name":"Agility Gold 7kg","price":80000,"quantity":2}]}`),
		llmtest.Text("Listo, tu pedido suma $160.000"),
	)
	ctx := context.Background()

	_, err := h.svc.HandleInbound(ctx, inbound("dame dos bultos"))
	require.NoError(t, err)

	p, err := h.store.Get(ctx, customerID)
	require.NoError(t, err)
	require.NotNil(t, p.Cart)
	assert.Equal(t, 160000.0, p.Cart.Total)
	assert.True(t, p.Cart.MeetsMinimum)
}

func TestHandleInboundFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		steps []llmtest.Step
	}{
		{"reasoning error", []llmtest.Step{llmtest.Fail(errors.New("503"))}},
		{"empty text", []llmtest.Step{llmtest.Text("  ")}},
		{"unknown tool", []llmtest.Step{llmtest.Tool("teleport", `{}`)}},
		{"invalid tool arguments", []llmtest.Step{llmtest.Tool("search_catalog", `{}`)}},
		{"follow-up error", []llmtest.Step{llmtest.Tool("search_catalog", `{"keyword":"x"}`), llmtest.Fail(errors.New("timeout"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.steps...)

			reply, err := h.svc.HandleInbound(context.Background(), inbound("hola"))
			require.NoError(t, err)
			require.NotNil(t, reply)

			assert.True(t, reply.Fallback)
			assert.Equal(t, config.DefaultBusiness().FallbackReply, reply.Text)
			assert.Empty(t, h.scheduler.jobs)

			history := h.store.History(customerID)
			require.Len(t, history, 2)
			assert.Equal(t, reply.Text, history[1].Text)
		})
	}
}

func TestHandleInboundStoreFailure(t *testing.T) {
	h := newHarness(t)
	h.store.SetErr(errors.New("firestore unavailable"))

	reply, err := h.svc.HandleInbound(context.Background(), inbound("hola"))
	assert.Error(t, err)
	assert.Nil(t, reply)
}

func TestHandleInboundSchedulerFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, llmtest.Text("¡Hola!"))
	h.scheduler.err = errors.New("nats down")

	reply, err := h.svc.HandleInbound(context.Background(), inbound("hola"))
	require.NoError(t, err)
	assert.Equal(t, "¡Hola!", reply.Text)
}

func TestHandleInboundUsesContextWindow(t *testing.T) {
	h := newHarness(t, llmtest.Text("ok"))
	ctx := context.Background()

	_, err := h.store.GetOrCreate(ctx, customerID, "Laura")
	require.NoError(t, err)
	// history that starts with an assistant turn
	_, _ = h.store.Append(ctx, customerID, model.RoleAssistant, "¡Bienvenida!")
	_, _ = h.store.Append(ctx, customerID, model.RoleUser, "hola")
	_, _ = h.store.Append(ctx, customerID, model.RoleAssistant, "¿En qué te ayudo?")

	_, err = h.svc.HandleInbound(ctx, inbound("busco arena"))
	require.NoError(t, err)

	msgs := h.llm.Requests()[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleUser, Content: "hola"}, msgs[0])
	assert.Equal(t, llm.ChatMessage{Role: llm.RoleUser, Content: "busco arena"}, msgs[2])
}
