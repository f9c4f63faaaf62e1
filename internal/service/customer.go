package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

// CustomerService exposes profile operations to operators.
type CustomerService struct {
	profiles store.ProfileStore
	logger   *logger.Logger
}

// NewCustomerService creates a new customer service.
func NewCustomerService(profiles store.ProfileStore, log *logger.Logger) *CustomerService {
	return &CustomerService{profiles: profiles, logger: log.Named("customers")}
}

// Get returns a customer profile.
func (s *CustomerService) Get(ctx context.Context, customerID string) (*model.CustomerProfile, error) {
	return s.profiles.Get(ctx, customerID)
}

// ClearHandover hands the conversation back to the assistant.
func (s *CustomerService) ClearHandover(ctx context.Context, customerID, operator string) (*model.CustomerProfile, error) {
	if err := s.profiles.SetHandover(ctx, customerID, false, ""); err != nil {
		return nil, err
	}

	s.logger.Info("handover cleared",
		zap.String("customer_id", customerID),
		zap.String("operator", operator),
	)
	return s.profiles.Get(ctx, customerID)
}

// MigrateMemory rewrites a narrative memory in structured form. It reports
// whether a write happened.
func (s *CustomerService) MigrateMemory(ctx context.Context, customerID string) (bool, error) {
	profile, err := s.profiles.Get(ctx, customerID)
	if err != nil {
		return false, err
	}
	if profile.Memory.Kind() != model.MemoryNarrative {
		return false, nil
	}

	if err := s.profiles.UpdateMemory(ctx, customerID, profile.Memory.Normalize()); err != nil {
		return false, fmt.Errorf("migrate memory: %w", err)
	}
	return true, nil
}
