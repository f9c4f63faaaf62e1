// Package config provides environment configuration for the API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Memory queue backends.
const (
	MemoryQueueInline = "inline"
	MemoryQueueNATS   = "nats"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `env:"PORT" envDefault:"8080"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"60s"`

	// WhatsApp Cloud API
	WhatsAppToken       string `env:"WHATSAPP_TOKEN"`
	WhatsAppVerifyToken string `env:"WHATSAPP_VERIFY_TOKEN"`
	WhatsAppAppSecret   string `env:"WHATSAPP_APP_SECRET"`
	WhatsAppAPIURL      string `env:"WHATSAPP_API_URL" envDefault:"https://graph.facebook.com/v17.0"`

	// Shopify Admin API
	ShopifyShopURL     string `env:"SHOPIFY_SHOP_URL"`
	ShopifyAccessToken string `env:"SHOPIFY_ACCESS_TOKEN"`
	ShopifyAPIVersion  string `env:"SHOPIFY_API_VERSION" envDefault:"2025-10"`

	// Firestore
	FirestoreProjectID string `env:"FIRESTORE_PROJECT_ID"`
	CredentialsFile    string `env:"GOOGLE_APPLICATION_CREDENTIALS"`

	// LLM settings
	AnthropicAPIKey   string        `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	DefaultLLM        string        `env:"DEFAULT_LLM" envDefault:"openai"`
	ReasoningModel    string        `env:"REASONING_MODEL"`
	ExtractionModel   string        `env:"EXTRACTION_MODEL"`
	ReasoningTimeout  time.Duration `env:"REASONING_TIMEOUT" envDefault:"8s"`
	ExtractionTimeout time.Duration `env:"EXTRACTION_TIMEOUT" envDefault:"30s"`

	// Conversation settings
	ContextWindow      int     `env:"CONTEXT_WINDOW" envDefault:"15"`
	MinOrderAmount     float64 `env:"MIN_ORDER_AMOUNT" envDefault:"150000"`
	BusinessConfigPath string  `env:"BUSINESS_CONFIG_PATH" envDefault:"config/business.yaml"`

	// Memory job queue
	MemoryQueue string `env:"MEMORY_QUEUE" envDefault:"inline"`

	// NATS settings
	NATSURL      string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSCAFile   string `env:"NATS_CA_FILE"`
	NATSCertFile string `env:"NATS_CERT_FILE"`
	NATSKeyFile  string `env:"NATS_KEY_FILE"`
	NATSToken    string `env:"NATS_TOKEN"`

	// Redis de-duplication
	RedisURL string        `env:"REDIS_URL"`
	DedupTTL time.Duration `env:"DEDUP_TTL" envDefault:"24h"`

	// JWT settings
	JWTSecret string `env:"JWT_SECRET" envDefault:"development-secret-change-in-production"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	WebhookRateLimit  int           `env:"WEBHOOK_RATE_LIMIT" envDefault:"600"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Tracing
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
}

// Load reads an optional .env file and then environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch c.MemoryQueue {
	case MemoryQueueInline, MemoryQueueNATS:
	default:
		return fmt.Errorf("MEMORY_QUEUE must be %q or %q, got %q", MemoryQueueInline, MemoryQueueNATS, c.MemoryQueue)
	}
	if c.ContextWindow <= 0 {
		return fmt.Errorf("CONTEXT_WINDOW must be positive, got %d", c.ContextWindow)
	}
	if c.MinOrderAmount < 0 {
		return fmt.Errorf("MIN_ORDER_AMOUNT must not be negative")
	}
	return nil
}

// LLMAPIKey returns the key matching DefaultLLM.
func (c *Config) LLMAPIKey() string {
	if c.DefaultLLM == "anthropic" {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}
