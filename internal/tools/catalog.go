package tools

import (
	"context"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/commerce"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
)

// Catalog looks products up.
type Catalog interface {
	SearchProducts(ctx context.Context, q commerce.Query) ([]commerce.Product, error)
}

// SearchCatalog is the search_catalog tool.
type SearchCatalog struct {
	catalog Catalog
}

// NewSearchCatalog creates the tool.
func NewSearchCatalog(catalog Catalog) *SearchCatalog {
	return &SearchCatalog{catalog: catalog}
}

type searchArgs struct {
	Brand   string `json:"brand" validate:"max=80"`
	Keyword string `json:"keyword" validate:"required_without=Brand,max=120"`
}

func (t *SearchCatalog) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "search_catalog",
		Description: "Search the store catalog for real prices and stock. Use brand to list a whole brand, keyword for anything else. Never quote a price without calling this first.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"brand":   map[string]any{"type": "string", "description": "Brand (vendor) name, e.g. Agility, Chunky"},
				"keyword": map[string]any{"type": "string", "description": "Search term, e.g. 'arena gato', 'cachorro raza pequeña'"},
			},
		},
	}
}

func (t *SearchCatalog) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	var args searchArgs
	if err := decodeArgs(inv.Arguments, &args); err != nil {
		return nil, err
	}

	products, err := t.catalog.SearchProducts(ctx, commerce.Query{Brand: args.Brand, Keyword: args.Keyword})
	if err != nil {
		return nil, err
	}

	out := struct {
		Products []commerce.Product `json:"products"`
		Message  string             `json:"message,omitempty"`
	}{Products: products}
	if len(products) == 0 {
		out.Products = []commerce.Product{}
		out.Message = "no stock"
	}

	body, err := payload(out)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: body}, nil
}
