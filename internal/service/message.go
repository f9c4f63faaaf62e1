package service

import (
	"context"
	"fmt"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store"
)

// MessageService reads chat history for operators.
type MessageService struct {
	profiles store.ProfileStore
	history  store.HistoryStore
}

// NewMessageService creates a new message service.
func NewMessageService(profiles store.ProfileStore, history store.HistoryStore) *MessageService {
	return &MessageService{profiles: profiles, history: history}
}

// GetMessages returns the newest messages of a customer, oldest first.
func (s *MessageService) GetMessages(ctx context.Context, customerID string, limit int) (*model.ListMessagesResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	if _, err := s.profiles.Get(ctx, customerID); err != nil {
		return nil, err
	}

	messages, err := s.history.Recent(ctx, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	return &model.ListMessagesResponse{
		CustomerID: customerID,
		Messages:   messages,
	}, nil
}
