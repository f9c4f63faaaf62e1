// Package commerce talks to the Shopify Admin API.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the shop URL or access token is missing.
var ErrNotConfigured = errors.New("shopify is not configured")

// Result sizes used by SearchProducts.
const (
	BrandResultLimit   = 50
	KeywordResultLimit = 5
)

// OrderTag marks orders created from WhatsApp conversations.
const OrderTag = "pedido-whatsapp"

// Config holds Shopify connection settings.
type Config struct {
	ShopURL     string
	AccessToken string
	APIVersion  string
	HTTPClient  *http.Client
}

// Client is a minimal Shopify Admin API client.
type Client struct {
	baseURL     string
	accessToken string
	apiVersion  string
	http        *http.Client
}

// NewClient creates a client. It never fails; calls on an unconfigured
// client return ErrNotConfigured.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.ShopURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	version := cfg.APIVersion
	if version == "" {
		version = "2025-10"
	}

	return &Client{
		baseURL:     base,
		accessToken: cfg.AccessToken,
		apiVersion:  version,
		http:        httpClient,
	}
}

// Configured reports whether the client can reach a shop.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.accessToken != ""
}

// Query selects products by brand (vendor) or free keyword. Brand wins when
// both are set.
type Query struct {
	Brand   string
	Keyword string
}

// Product is a catalog entry as shown to the model.
type Product struct {
	Title     string  `json:"title"`
	Vendor    string  `json:"vendor,omitempty"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Available bool    `json:"available"`
	VariantID string  `json:"variant_id"`
}

const productsQuery = `query Products($first: Int!, $query: String!) {
  products(first: $first, query: $query) {
    edges {
      node {
        title
        vendor
        totalInventory
        priceRangeV2 { minVariantPrice { amount currencyCode } }
        variants(first: 1) { edges { node { id availableForSale } } }
      }
    }
  }
}`

type productsResponse struct {
	Data struct {
		Products struct {
			Edges []struct {
				Node struct {
					Title          string `json:"title"`
					Vendor         string `json:"vendor"`
					TotalInventory int    `json:"totalInventory"`
					PriceRangeV2   struct {
						MinVariantPrice struct {
							Amount       string `json:"amount"`
							CurrencyCode string `json:"currencyCode"`
						} `json:"minVariantPrice"`
					} `json:"priceRangeV2"`
					Variants struct {
						Edges []struct {
							Node struct {
								ID               string `json:"id"`
								AvailableForSale bool   `json:"availableForSale"`
							} `json:"node"`
						} `json:"edges"`
					} `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SearchQuery builds the Shopify search string and result size for q.
// Only active products are returned; the keyword is grouped so an OR inside
// it cannot escape the status filter.
func SearchQuery(q Query) (string, int) {
	if brand := strings.TrimSpace(q.Brand); brand != "" {
		return fmt.Sprintf(`vendor:"%s" AND status:ACTIVE`, strings.ReplaceAll(brand, `"`, "")), BrandResultLimit
	}
	keyword := strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(q.Keyword))
	return fmt.Sprintf("(%s) AND status:ACTIVE", strings.Join(keyword, " ")), KeywordResultLimit
}

// SearchProducts looks products up in the catalog.
func (c *Client) SearchProducts(ctx context.Context, q Query) ([]Product, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	search, first := SearchQuery(q)
	body, err := json.Marshal(map[string]any{
		"query":     productsQuery,
		"variables": map[string]any{"first": first, "query": search},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	var resp productsResponse
	if err := c.do(ctx, http.MethodPost, "/graphql.json", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("shopify graphql: %s", resp.Errors[0].Message)
	}

	products := make([]Product, 0, len(resp.Data.Products.Edges))
	for _, edge := range resp.Data.Products.Edges {
		node := edge.Node
		p := Product{
			Title:    node.Title,
			Vendor:   node.Vendor,
			Currency: node.PriceRangeV2.MinVariantPrice.CurrencyCode,
		}
		if amount, err := strconv.ParseFloat(node.PriceRangeV2.MinVariantPrice.Amount, 64); err == nil {
			p.Price = amount
		}
		available := node.TotalInventory > 0
		if len(node.Variants.Edges) > 0 {
			variant := node.Variants.Edges[0].Node
			p.VariantID = variant.ID
			available = available || variant.AvailableForSale
		}
		p.Available = available
		products = append(products, p)
	}

	return products, nil
}

// OrderLine is one product of an order.
type OrderLine struct {
	VariantID string
	Quantity  int
}

// OrderRequest describes a pending order to create.
type OrderRequest struct {
	Lines     []OrderLine
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Note      string
}

// Order is the created order.
type Order struct {
	ID         int64  `json:"id"`
	Number     string `json:"name"`
	TotalPrice string `json:"total_price"`
}

type orderLineItem struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type orderCustomer struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type orderPayload struct {
	Order struct {
		LineItems       []orderLineItem `json:"line_items"`
		Customer        *orderCustomer  `json:"customer,omitempty"`
		Phone           string          `json:"phone,omitempty"`
		Note            string          `json:"note,omitempty"`
		FinancialStatus string          `json:"financial_status"`
		Tags            string          `json:"tags"`
	} `json:"order"`
}

// CreateOrder creates a pending order tagged with OrderTag.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if len(req.Lines) == 0 {
		return nil, errors.New("order has no lines")
	}

	var payload orderPayload
	for _, line := range req.Lines {
		id, err := NumericVariantID(line.VariantID)
		if err != nil {
			return nil, err
		}
		payload.Order.LineItems = append(payload.Order.LineItems, orderLineItem{VariantID: id, Quantity: line.Quantity})
	}
	if req.FirstName != "" || req.LastName != "" || req.Email != "" {
		payload.Order.Customer = &orderCustomer{FirstName: req.FirstName, LastName: req.LastName, Email: req.Email}
	}
	payload.Order.Phone = req.Phone
	payload.Order.Note = req.Note
	payload.Order.FinancialStatus = "pending"
	payload.Order.Tags = OrderTag

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	var resp struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders.json", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Order, nil
}

// NumericVariantID extracts the numeric id from a variant GID such as
// gid://shopify/ProductVariant/123.
func NumericVariantID(gid string) (int64, error) {
	raw := gid
	if i := strings.LastIndex(gid, "/"); i >= 0 {
		raw = gid[i+1:]
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid variant id %q", gid)
	}
	return id, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	url := fmt.Sprintf("%s/admin/api/%s%s", c.baseURL, c.apiVersion, path)

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shopify request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read shopify response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("shopify returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode shopify response: %w", err)
	}
	return nil
}
