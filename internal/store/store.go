// Package store persists customer profiles and chat history.
package store

import (
	"context"
	"errors"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

// ErrNotFound is returned when a customer profile does not exist.
var ErrNotFound = errors.New("customer not found")

// ProfileStore owns CustomerProfile records. Every write touches only the
// fields it names so concurrent writers never clobber each other.
type ProfileStore interface {
	// GetOrCreate returns the profile, creating an empty one on first
	// contact. LastInteractionAt is bumped on every call.
	GetOrCreate(ctx context.Context, customerID, displayName string) (*model.CustomerProfile, error)

	// Get returns the latest persisted profile or ErrNotFound.
	Get(ctx context.Context, customerID string) (*model.CustomerProfile, error)

	// UpdateMemory replaces the memory field only.
	UpdateMemory(ctx context.Context, customerID string, pets []model.PetRecord) error

	// SetHandover sets or clears the human handover flag.
	SetHandover(ctx context.Context, customerID string, requested bool, reason string) error

	// SaveCart replaces the cart. A nil cart clears it.
	SaveCart(ctx context.Context, customerID string, cart *model.CartState) error
}

// HistoryStore is the append-only chat log of each customer.
type HistoryStore interface {
	// Append stores a message with a server-assigned timestamp.
	Append(ctx context.Context, customerID string, role model.Role, text string) (*model.ChatMessage, error)

	// Recent returns up to limit of the newest messages, oldest first.
	Recent(ctx context.Context, customerID string, limit int) ([]model.ChatMessage, error)
}

// Store combines both stores.
type Store interface {
	ProfileStore
	HistoryStore
}
