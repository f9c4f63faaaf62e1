package model

import (
	"math"
	"time"
)

// CartItem is a single line of the customer's cart.
type CartItem struct {
	ProductRef string  `json:"product_ref,omitempty" firestore:"productRef"`
	Name       string  `json:"name" firestore:"name"`
	UnitPrice  float64 `json:"unit_price" firestore:"unitPrice"`
	Quantity   int     `json:"quantity" firestore:"quantity"`
}

// Subtotal returns UnitPrice times Quantity.
func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// CartState is the last cart proposed by the assistant. It is never patched:
// every update replaces it through NewCartState.
type CartState struct {
	Items        []CartItem `json:"items" firestore:"items"`
	Total        float64    `json:"total" firestore:"total"`
	Minimum      float64    `json:"minimum" firestore:"minimum"`
	MeetsMinimum bool       `json:"meets_minimum" firestore:"meetsMinimum"`
	UpdatedAt    time.Time  `json:"updated_at" firestore:"updatedAt"`
}

// NewCartState computes totals for items against the minimum order amount.
func NewCartState(items []CartItem, minimum float64, now time.Time) CartState {
	cp := make([]CartItem, len(items))
	copy(cp, items)

	var total float64
	for _, item := range cp {
		total += item.Subtotal()
	}
	// prices are in whole currency units with at most cents
	total = math.Round(total*100) / 100

	return CartState{
		Items:        cp,
		Total:        total,
		Minimum:      minimum,
		MeetsMinimum: total >= minimum,
		UpdatedAt:    now,
	}
}
