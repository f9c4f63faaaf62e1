// Package main is the entry point for the WhatsApp sales assistant server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/commerce"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/config"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/dedup"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/handler"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/memory"
	natsclient "github.com/cristiandgm/chatbot-shopify-ventas/internal/nats"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/service"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/tools"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/whatsapp"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx := context.Background()

	log.Info("starting sales assistant", zap.String("memory_queue", cfg.MemoryQueue))

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatbot-shopify-ventas", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	business, err := config.LoadBusiness(cfg.BusinessConfigPath)
	if err != nil {
		return err
	}

	fsClient, err := store.NewFirestoreClient(ctx, cfg.FirestoreProjectID, cfg.CredentialsFile)
	if err != nil {
		return err
	}
	st := store.NewFirestoreStore(fsClient)
	defer st.Close()

	llmClient, err := llm.NewClient(llm.Provider(cfg.DefaultLLM), cfg.LLMAPIKey())
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	reconciler := memory.NewReconciler(llmClient, log,
		memory.WithModel(cfg.ExtractionModel),
		memory.WithTimeout(cfg.ExtractionTimeout),
	)
	updater := service.NewMemoryUpdater(st, reconciler, log)

	checks := map[string]handler.Check{"firestore": st.Ping}

	// Memory jobs run in-process or through JetStream.
	var (
		scheduler service.Scheduler
		inline    *service.InlineScheduler
		consumer  jetstream.ConsumeContext
	)
	switch cfg.MemoryQueue {
	case config.MemoryQueueNATS:
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer natsClient.Close()

		queue := natsclient.NewJobQueue(natsClient, log)
		if err := queue.EnsureStream(ctx); err != nil {
			return err
		}
		consumer, err = queue.Consume(ctx, updater.Run)
		if err != nil {
			return err
		}
		scheduler = queue
		checks["nats"] = func(context.Context) error {
			if !natsClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		}
	default:
		inline = service.NewInlineScheduler(updater.Run, cfg.ExtractionTimeout*2, log)
		scheduler = inline
	}

	var deduper dedup.Deduper = dedup.Nop{}
	if cfg.RedisURL != "" {
		rd, err := dedup.NewRedisDeduper(ctx, cfg.RedisURL, cfg.DedupTTL)
		if err != nil {
			return err
		}
		defer rd.Close()
		deduper = rd
		checks["redis"] = rd.Ping
	} else {
		log.Warn("REDIS_URL not set, duplicate webhook deliveries will be processed")
	}

	shop := commerce.NewClient(commerce.Config{
		ShopURL:     cfg.ShopifyShopURL,
		AccessToken: cfg.ShopifyAccessToken,
		APIVersion:  cfg.ShopifyAPIVersion,
	})
	if !shop.Configured() {
		log.Warn("Shopify is not configured, catalog and order tools will fail")
	}

	registry := tools.NewRegistry(
		tools.NewSearchCatalog(shop),
		tools.NewUpdateCart(st, cfg.MinOrderAmount),
		tools.EscalateToHuman{},
		tools.NewPlaceOrder(st, shop),
	)

	conversationSvc := service.NewConversationService(st, st, llmClient, registry, scheduler, business, service.ConversationConfig{
		Model:            cfg.ReasoningModel,
		ContextWindow:    cfg.ContextWindow,
		ReasoningTimeout: cfg.ReasoningTimeout,
		MinOrderAmount:   cfg.MinOrderAmount,
	}, log)

	router := handler.NewRouter(handler.Routes{
		Health:  handler.NewHealthHandler(business.AssistantName, checks),
		Webhook: handler.NewWebhookHandler(conversationSvc, whatsapp.NewClient(cfg.WhatsAppAPIURL, cfg.WhatsAppToken), deduper, handler.WebhookConfig{
			VerifyToken: cfg.WhatsAppVerifyToken,
			AppSecret:   cfg.WhatsAppAppSecret,
		}, log.Named("webhook")),
		Customers:         handler.NewCustomerHandler(service.NewCustomerService(st, log), log),
		Messages:          handler.NewMessageHandler(service.NewMessageService(st, st), log),
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		WebhookRateLimit:  cfg.WebhookRateLimit,
		Logger:            log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if consumer != nil {
		consumer.Stop()
	}
	if inline != nil {
		if err := inline.Wait(shutdownCtx); err != nil {
			log.Warn("memory jobs still running at shutdown", zap.Error(err))
		}
	}

	log.Info("server stopped")
	return nil
}
