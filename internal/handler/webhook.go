package handler

import (
	"context"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/dedup"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/middleware"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/service"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/whatsapp"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/metrics"
)

const maxWebhookBody = 1 << 20

// Orchestrator turns an inbound message into a reply.
type Orchestrator interface {
	HandleInbound(ctx context.Context, in service.Inbound) (*service.Reply, error)
}

// Sender delivers text replies.
type Sender interface {
	SendText(ctx context.Context, phoneNumberID, to, text string) (string, error)
}

// WebhookConfig holds the WhatsApp webhook secrets.
type WebhookConfig struct {
	VerifyToken string
	// AppSecret enables X-Hub-Signature-256 checks when set.
	AppSecret string
}

// WebhookHandler handles the WhatsApp Cloud API webhook.
type WebhookHandler struct {
	orchestrator Orchestrator
	sender       Sender
	deduper      dedup.Deduper
	cfg          WebhookConfig
	logger       *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(orch Orchestrator, sender Sender, deduper dedup.Deduper, cfg WebhookConfig, log *logger.Logger) *WebhookHandler {
	if deduper == nil {
		deduper = dedup.Nop{}
	}
	return &WebhookHandler{
		orchestrator: orch,
		sender:       sender,
		deduper:      deduper,
		cfg:          cfg,
		logger:       log,
	}
}

// Verify handles GET /webhook
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || h.cfg.VerifyToken == "" || q.Get("hub.verify_token") != h.cfg.VerifyToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, q.Get("hub.challenge"))
}

// Receive handles POST /webhook
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With(zap.String("correlation_id", middleware.GetCorrelationID(ctx)))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.cfg.AppSecret != "" && !whatsapp.VerifySignature(h.cfg.AppSecret, body, r.Header.Get(whatsapp.SignatureHeader)) {
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	messages, err := whatsapp.Parse(body)
	if err != nil {
		// acknowledged so the platform does not retry a payload we cannot use
		log.Debug("ignoring webhook payload", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	for _, msg := range messages {
		if err := h.process(ctx, msg); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to process message")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// process handles one message. Only store failures are returned; delivery
// failures are logged.
func (h *WebhookHandler) process(ctx context.Context, msg whatsapp.InboundMessage) error {
	log := h.logger.WithContext(middleware.GetCorrelationID(ctx), msg.From)

	if err := middleware.ValidateCustomerID(msg.From); err != nil {
		log.Warn("dropping message from invalid sender", zap.String("message_id", msg.ID))
		metrics.InboundMessagesTotal.WithLabelValues("invalid").Inc()
		return nil
	}
	if err := middleware.ValidateMessageText(msg.Text); err != nil {
		log.Warn("dropping invalid message text", zap.String("message_id", msg.ID), zap.Error(err))
		metrics.InboundMessagesTotal.WithLabelValues("invalid").Inc()
		return nil
	}

	if msg.ID != "" {
		first, err := h.deduper.FirstSeen(ctx, msg.ID)
		switch {
		case err != nil:
			log.Warn("dedup unavailable, processing anyway", zap.String("message_id", msg.ID), zap.Error(err))
		case !first:
			log.Debug("duplicate delivery", zap.String("message_id", msg.ID))
			metrics.InboundMessagesTotal.WithLabelValues("duplicate").Inc()
			return nil
		}
	}

	reply, err := h.orchestrator.HandleInbound(ctx, service.Inbound{
		CustomerID:    msg.From,
		Text:          msg.Text,
		DisplayName:   msg.DisplayName,
		PhoneNumberID: msg.PhoneNumberID,
	})
	if err != nil {
		log.Error("failed to handle message", zap.String("message_id", msg.ID), zap.Error(err))
		if msg.ID != "" {
			if rerr := h.deduper.Release(context.WithoutCancel(ctx), msg.ID); rerr != nil {
				log.Warn("failed to release message id", zap.String("message_id", msg.ID), zap.Error(rerr))
			}
		}
		return err
	}
	if reply == nil {
		return nil
	}

	outID, err := h.sender.SendText(ctx, reply.PhoneNumberID, reply.CustomerID, reply.Text)
	if err != nil {
		metrics.OutboundDeliveriesTotal.WithLabelValues("error").Inc()
		log.Error("failed to deliver reply", zap.String("message_id", msg.ID), zap.Error(err))
		return nil
	}

	metrics.OutboundDeliveriesTotal.WithLabelValues("ok").Inc()
	log.Debug("reply delivered",
		zap.String("message_id", msg.ID),
		zap.String("reply_id", outID),
		zap.Bool("handover", reply.Handover),
		zap.Bool("fallback", reply.Fallback),
	)
	return nil
}
