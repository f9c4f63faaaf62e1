package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role the history log accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage is one immutable entry of a customer's history.
type ChatMessage struct {
	ID        string    `json:"id" firestore:"id"`
	Role      Role      `json:"role" firestore:"role"`
	Text      string    `json:"text" firestore:"text"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// Turn is a transcript line handed to the reasoning step.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ListMessagesResponse is the operator API response for a history listing.
type ListMessagesResponse struct {
	CustomerID string        `json:"customer_id"`
	Messages   []ChatMessage `json:"messages"`
}
