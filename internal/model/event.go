package model

import (
	"time"
)

// ReconcileJob asks the memory worker to reconcile a customer's long-term
// memory against the latest exchange.
type ReconcileJob struct {
	ID            string    `json:"id"`
	CustomerID    string    `json:"customer_id"`
	Turns         []Turn    `json:"turns"`
	LatestMessage string    `json:"latest_message"`
	RequestedAt   time.Time `json:"requested_at"`
}
