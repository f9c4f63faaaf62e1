// Package memory reconciles a customer's long-term memory with what they
// said in the latest exchange.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/metrics"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/tracing"
)

// Reason explains a reconciliation outcome.
type Reason string

const (
	ReasonUpdated         Reason = "updated"
	ReasonDeleted         Reason = "deleted"
	ReasonNoChange        Reason = "no_change"
	ReasonWipeoutRejected Reason = "wipeout_rejected"
	ReasonMalformed       Reason = "malformed"
	ReasonFailed          Reason = "failed"
)

// Outcome is the result of one reconciliation. Pets is only meaningful
// when Changed is true.
type Outcome struct {
	Changed bool
	Pets    []model.PetRecord
	Reason  Reason
}

// Reconciler runs the extraction model and applies the merge rules to its
// proposal.
type Reconciler struct {
	client  llm.Client
	model   string
	timeout time.Duration
	logger  *logger.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithModel selects the extraction model.
func WithModel(model string) Option {
	return func(r *Reconciler) { r.model = model }
}

// WithTimeout bounds each extraction call.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewReconciler creates a reconciler backed by client.
func NewReconciler(client llm.Client, log *logger.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		client:  client,
		timeout: 30 * time.Second,
		logger:  log.Named("memory"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile decides whether and how current must change given the recent
// turns and the latest customer message. A non-nil error means the cycle
// must be skipped and current kept as is.
func (r *Reconciler) Reconcile(ctx context.Context, current model.Memory, turns []model.Turn, latest string) (Outcome, error) {
	ctx, span := tracing.Tracer().Start(ctx, "memory.Reconcile")
	defer span.End()

	out, err := r.reconcile(ctx, current, turns, latest)

	span.SetAttributes(
		attribute.String("memory.outcome", string(out.Reason)),
		attribute.String("memory.kind", current.Kind().String()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordReconciliation(string(out.Reason))

	return out, err
}

func (r *Reconciler) reconcile(ctx context.Context, current model.Memory, turns []model.Turn, latest string) (Outcome, error) {
	existing := current.Normalize()

	if strings.TrimSpace(latest) == "" && len(turns) == 0 {
		return Outcome{Reason: ReasonNoChange}, nil
	}

	prompt, err := buildExtractionPrompt(existing, turns, latest)
	if err != nil {
		return Outcome{Reason: ReasonFailed}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.client.Complete(callCtx, &llm.CompletionRequest{
		Model:       r.model,
		System:      extractionInstruction,
		Messages:    []llm.ChatMessage{{Role: llm.RoleUser, Content: prompt}},
		Temperature: 0,
		MaxTokens:   2048,
	})
	if err != nil {
		metrics.RecordLLMCall("extraction", r.model, "error", time.Since(start).Seconds(), 0, 0)
		return Outcome{Reason: ReasonFailed}, fmt.Errorf("extraction call: %w", err)
	}
	metrics.RecordLLMCall("extraction", resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	prop, err := parseExtraction(resp.Content)
	if err != nil {
		return Outcome{Reason: ReasonMalformed}, err
	}
	if prop.noChange {
		return Outcome{Reason: ReasonNoChange}, nil
	}

	deletion := DetectDeletionIntent(latest)

	if len(prop.pets) == 0 && len(existing) > 0 && !deletion {
		r.logger.Warn("rejected memory wipeout",
			zap.Int("current_records", len(existing)),
			zap.String("memory_kind", current.Kind().String()),
		)
		return Outcome{Reason: ReasonWipeoutRejected}, nil
	}

	merged := mergeRecords(existing, prop.pets, removalScope(deletion, prop.pets, latest))

	if slices.Equal(merged, existing) {
		return Outcome{Reason: ReasonNoChange}, nil
	}

	reason := ReasonUpdated
	if len(merged) < len(existing) && deletion {
		reason = ReasonDeleted
	}

	r.logger.Debug("memory reconciled",
		zap.String("reason", string(reason)),
		zap.Int("before", len(existing)),
		zap.Int("after", len(merged)),
	)

	return Outcome{Changed: true, Pets: merged, Reason: reason}, nil
}

// removalScope decides which omitted records a deletion request may drop. An
// empty proposal clears everything; otherwise the latest message has to name
// the record.
func removalScope(deletion bool, proposed []model.PetRecord, latest string) func(model.PetRecord) bool {
	switch {
	case !deletion:
		return nil
	case len(proposed) == 0:
		return func(model.PetRecord) bool { return true }
	default:
		return func(p model.PetRecord) bool { return mentions(latest, p.Name) }
	}
}
