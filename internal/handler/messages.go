package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/middleware"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/service"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

// MessageHandler handles chat history endpoints.
type MessageHandler struct {
	messageService *service.MessageService
	logger         *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(msgSvc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: msgSvc,
		logger:         log,
	}
}

// List handles GET /api/v1/customers/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	if err := middleware.ValidateCustomerID(customerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	resp, err := h.messageService.GetMessages(r.Context(), customerID, limit)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			writeError(w, status, "customer not found")
			return
		}
		h.logger.Error("failed to get messages", zap.String("customer_id", customerID), zap.Error(err))
		writeError(w, status, "failed to get messages")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
