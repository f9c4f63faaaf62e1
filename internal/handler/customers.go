package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/middleware"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/service"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

// CustomerHandler handles operator customer endpoints.
type CustomerHandler struct {
	service *service.CustomerService
	logger  *logger.Logger
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(svc *service.CustomerService, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		service: svc,
		logger:  log,
	}
}

// Get handles GET /api/v1/customers/:id
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "id")
	if err := middleware.ValidateCustomerID(customerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.Get(r.Context(), customerID)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			writeError(w, status, "customer not found")
			return
		}
		h.logger.Error("failed to get customer", zap.String("customer_id", customerID), zap.Error(err))
		writeError(w, status, "failed to get customer")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// ClearHandover handles DELETE /api/v1/customers/:id/handover
func (h *CustomerHandler) ClearHandover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := chi.URLParam(r, "id")
	if err := middleware.ValidateCustomerID(customerID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.ClearHandover(ctx, customerID, middleware.GetOperator(ctx))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusNotFound {
			writeError(w, status, "customer not found")
			return
		}
		h.logger.Error("failed to clear handover", zap.String("customer_id", customerID), zap.Error(err))
		writeError(w, status, "failed to clear handover")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
