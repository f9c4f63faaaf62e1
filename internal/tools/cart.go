package tools

import (
	"context"
	"time"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

// CartStore reads profiles and replaces their cart.
type CartStore interface {
	Get(ctx context.Context, customerID string) (*model.CustomerProfile, error)
	SaveCart(ctx context.Context, customerID string, cart *model.CartState) error
}

// UpdateCart is the update_cart tool.
type UpdateCart struct {
	store   CartStore
	minimum float64
	now     func() time.Time
}

// NewUpdateCart creates the tool with the configured minimum order amount.
func NewUpdateCart(store CartStore, minimum float64) *UpdateCart {
	return &UpdateCart{store: store, minimum: minimum, now: time.Now}
}

type cartItemArgs struct {
	Name       string  `json:"name" validate:"required"`
	Price      float64 `json:"price" validate:"gte=0"`
	Quantity   int     `json:"quantity" validate:"gt=0"`
	ProductRef string  `json:"product_ref"`
}

type cartArgs struct {
	Items []cartItemArgs `json:"items" validate:"required,min=1,dive"`
}

func (t *UpdateCart) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "update_cart",
		Description: "Replace the customer's cart with the full list of products and quantities they confirmed. Returns the total and whether it reaches the minimum order.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"name":        map[string]any{"type": "string"},
							"price":       map[string]any{"type": "number", "description": "Unit price from search_catalog"},
							"quantity":    map[string]any{"type": "integer"},
							"product_ref": map[string]any{"type": "string", "description": "variant_id from search_catalog"},
						},
						"required": []string{"name", "price", "quantity"},
					},
				},
			},
			"required": []string{"items"},
		},
	}
}

func (t *UpdateCart) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	var args cartArgs
	if err := decodeArgs(inv.Arguments, &args); err != nil {
		return nil, err
	}

	items := make([]model.CartItem, 0, len(args.Items))
	for _, it := range args.Items {
		items = append(items, model.CartItem{
			ProductRef: it.ProductRef,
			Name:       it.Name,
			UnitPrice:  it.Price,
			Quantity:   it.Quantity,
		})
	}

	cart := model.NewCartState(items, t.minimum, t.now().UTC())
	if err := t.store.SaveCart(ctx, inv.CustomerID, &cart); err != nil {
		return nil, err
	}

	out := struct {
		Total        float64 `json:"total"`
		Minimum      float64 `json:"minimum"`
		MeetsMinimum bool    `json:"meets_minimum"`
		Missing      float64 `json:"missing,omitempty"`
		Items        int     `json:"items"`
	}{
		Total:        cart.Total,
		Minimum:      cart.Minimum,
		MeetsMinimum: cart.MeetsMinimum,
		Items:        len(cart.Items),
	}
	if !cart.MeetsMinimum {
		out.Missing = cart.Minimum - cart.Total
	}

	body, err := payload(out)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: body}, nil
}
