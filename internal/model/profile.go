// Package model defines data structures for the sales assistant.
package model

import (
	"time"
)

// CustomerProfile is the persistent record kept for each WhatsApp customer.
type CustomerProfile struct {
	ID                string     `json:"id"`
	DisplayName       string     `json:"display_name"`
	Memory            Memory     `json:"memory"`
	HandoverRequested bool       `json:"handover_requested"`
	HandoverReason    string     `json:"handover_reason,omitempty"`
	HandoverAt        *time.Time `json:"handover_at,omitempty"`
	Cart              *CartState `json:"cart,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastInteractionAt time.Time  `json:"last_interaction_at"`
	MemoryUpdatedAt   *time.Time `json:"memory_updated_at,omitempty"`
}

// DefaultDisplayName is used when WhatsApp does not send a profile name.
const DefaultDisplayName = "Amigo/a"

// NewCustomerProfile returns the profile stored for a customer seen for the
// first time.
func NewCustomerProfile(id, displayName string, now time.Time) *CustomerProfile {
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	return &CustomerProfile{
		ID:                id,
		DisplayName:       displayName,
		CreatedAt:         now,
		LastInteractionAt: now,
	}
}
