package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/middleware"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

// Routes groups the handlers and limits mounted by NewRouter.
type Routes struct {
	Health    *HealthHandler
	Webhook   *WebhookHandler
	Customers *CustomerHandler
	Messages  *MessageHandler

	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	WebhookRateLimit  int
	Logger            *logger.Logger
}

// NewRouter builds the HTTP surface: health and metrics, the WhatsApp
// webhook and the operator API.
func NewRouter(rt Routes) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", rt.Health.Health)
	r.Get("/ready", rt.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(rt.WebhookRateLimit, rt.RateLimitWindow))
		r.Get("/webhook", rt.Webhook.Verify)
		r.Post("/webhook", rt.Webhook.Receive)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS())
		r.Use(middleware.Auth(rt.JWTSecret))
		r.Use(middleware.OperatorRateLimit(rt.RateLimitRequests, rt.RateLimitWindow))

		r.Route("/customers/{id}", func(r chi.Router) {
			r.With(middleware.RequireScope(middleware.ScopeCustomersRead)).Get("/", rt.Customers.Get)
			r.With(middleware.RequireScope(middleware.ScopeCustomersRead)).Get("/messages", rt.Messages.List)
			r.With(middleware.RequireScope(middleware.ScopeHandoverWrite)).Delete("/handover", rt.Customers.ClearHandover)
		})
	})

	return r
}
