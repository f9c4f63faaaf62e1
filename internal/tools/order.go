package tools

import (
	"context"
	"fmt"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/commerce"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
)

// OrderPlacer creates orders in the commerce platform.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req commerce.OrderRequest) (*commerce.Order, error)
}

// PlaceOrder is the place_order tool. It turns the saved cart into a pending
// order and clears the cart.
type PlaceOrder struct {
	store  CartStore
	orders OrderPlacer
}

// NewPlaceOrder creates the tool.
func NewPlaceOrder(store CartStore, orders OrderPlacer) *PlaceOrder {
	return &PlaceOrder{store: store, orders: orders}
}

type orderArgs struct {
	FirstName string `json:"first_name" validate:"required,max=80"`
	LastName  string `json:"last_name" validate:"max=80"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type orderOutcome struct {
	Status      string  `json:"status"`
	Message     string  `json:"message,omitempty"`
	OrderNumber string  `json:"order_number,omitempty"`
	Total       string  `json:"total,omitempty"`
	Missing     float64 `json:"missing,omitempty"`
}

func (t *PlaceOrder) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "place_order",
		Description: "Create the order for the saved cart once the customer confirmed it and gave their name. Only works when the cart reaches the minimum order.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"first_name": map[string]any{"type": "string"},
				"last_name":  map[string]any{"type": "string"},
				"email":      map[string]any{"type": "string"},
			},
			"required": []string{"first_name"},
		},
	}
}

func (t *PlaceOrder) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	var args orderArgs
	if err := decodeArgs(inv.Arguments, &args); err != nil {
		return nil, err
	}

	profile, err := t.store.Get(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}

	cart := profile.Cart
	switch {
	case cart == nil || len(cart.Items) == 0:
		return rejected(orderOutcome{Status: "rejected", Message: "the cart is empty"})
	case !cart.MeetsMinimum:
		return rejected(orderOutcome{Status: "rejected", Message: "the cart does not reach the minimum order", Missing: cart.Minimum - cart.Total})
	}

	req := commerce.OrderRequest{
		FirstName: args.FirstName,
		LastName:  args.LastName,
		Email:     args.Email,
		Phone:     inv.CustomerID,
		Note:      "WhatsApp " + inv.CustomerID,
	}
	for _, item := range cart.Items {
		if item.ProductRef == "" {
			return rejected(orderOutcome{Status: "rejected", Message: fmt.Sprintf("%q has no catalog reference, search it again", item.Name)})
		}
		req.Lines = append(req.Lines, commerce.OrderLine{VariantID: item.ProductRef, Quantity: item.Quantity})
	}

	order, err := t.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := t.store.SaveCart(ctx, inv.CustomerID, nil); err != nil {
		return nil, fmt.Errorf("clear cart after order %s: %w", order.Number, err)
	}

	body, err := payload(orderOutcome{Status: "created", OrderNumber: order.Number, Total: order.TotalPrice})
	if err != nil {
		return nil, err
	}
	return &Result{Payload: body}, nil
}

func rejected(o orderOutcome) (*Result, error) {
	body, err := payload(o)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: body}, nil
}
