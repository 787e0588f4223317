// Package prodigi is a client for the Prodigi print-on-demand v4 API. It
// is used by the fulfillment commands; the coordinator only records orders
// and never talks to Prodigi directly.
package prodigi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the sandbox endpoint. Production is
	// https://api.prodigi.com/v4.0.
	DefaultBaseURL = "https://api.sandbox.prodigi.com/v4.0"

	defaultTimeout = 30 * time.Second
)

// Client calls the Prodigi REST API. The zero value is not usable; use New.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a client for the given endpoint. An empty baseURL selects the
// sandbox.
func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// Recipient is who the order ships to.
type Recipient struct {
	Name    string  `json:"name"`
	Email   string  `json:"email,omitempty"`
	Address Address `json:"address"`
}

// Address is a Prodigi shipping address.
type Address struct {
	Line1           string `json:"line1"`
	Line2           string `json:"line2,omitempty"`
	TownOrCity      string `json:"townOrCity"`
	StateOrCounty   string `json:"stateOrCounty,omitempty"`
	PostalOrZipCode string `json:"postalOrZipCode"`
	CountryCode     string `json:"countryCode"`
}

// Asset is a print asset, typically the image URL captured by the scanner.
type Asset struct {
	PrintArea string `json:"printArea"`
	URL       string `json:"url"`
}

// Item is one line of an order or quote.
type Item struct {
	SKU        string            `json:"sku"`
	Copies     int               `json:"copies"`
	Sizing     string            `json:"sizing,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Assets     []Asset           `json:"assets"`
}

// Order is a Prodigi order, both as submitted and as returned.
type Order struct {
	ID                string    `json:"id,omitempty"`
	Created           time.Time `json:"created,omitempty"`
	MerchantReference string    `json:"merchantReference,omitempty"`
	ShippingMethod    string    `json:"shippingMethod"`
	IdempotencyKey    string    `json:"idempotencyKey,omitempty"`
	Recipient         Recipient `json:"recipient"`
	Items             []Item    `json:"items"`
	Status            *Status   `json:"status,omitempty"`
}

// Status is the fulfillment progress of a submitted order.
type Status struct {
	Stage   string            `json:"stage"`
	Details map[string]string `json:"details,omitempty"`
}

// Product describes a printable SKU.
type Product struct {
	SKU               string `json:"sku"`
	Description       string `json:"description"`
	ProductDimensions struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
		Units  string  `json:"units"`
	} `json:"productDimensions"`
	Attributes map[string][]string `json:"attributes"`
}

// Quote prices a prospective order.
type Quote struct {
	ShipmentMethod string `json:"shipmentMethod"`
	CostSummary    struct {
		Items    Money `json:"items"`
		Shipping Money `json:"shipping"`
	} `json:"costSummary"`
}

// Money is an amount in a named currency.
type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type apiError struct {
	Outcome  string         `json:"outcome"`
	Failures map[string]any `json:"failures"`
}

// CreateOrder submits an order for fulfillment.
func (c *Client) CreateOrder(ctx context.Context, order Order) (*Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", order, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// GetOrder fetches a submitted order by id.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// CancelOrder requests cancellation of a not-yet-printed order.
func (c *Client) CancelOrder(ctx context.Context, id string) (*Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders/"+id+"/actions/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// GetProducts pages through the printable catalog.
func (c *Client) GetProducts(ctx context.Context, top, skip int) ([]Product, error) {
	endpoint := "/products"
	if top > 0 {
		endpoint = fmt.Sprintf("/products?top=%d&skip=%d", top, skip)
	}
	var out struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// GetProduct fetches the catalog entry for one SKU.
func (c *Client) GetProduct(ctx context.Context, sku string) (*Product, error) {
	var out struct {
		Product Product `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "/products/"+sku, nil, &out); err != nil {
		return nil, err
	}
	return &out.Product, nil
}

// CreateQuote prices an order without submitting it.
func (c *Client) CreateQuote(ctx context.Context, order Order) ([]Quote, error) {
	var out struct {
		Quotes []Quote `json:"quotes"`
	}
	req := struct {
		ShippingMethod         string `json:"shippingMethod"`
		DestinationCountryCode string `json:"destinationCountryCode"`
		Items                  []Item `json:"items"`
	}{
		ShippingMethod:         order.ShippingMethod,
		DestinationCountryCode: order.Recipient.Address.CountryCode,
		Items:                  order.Items,
	}
	if err := c.do(ctx, http.MethodPost, "/quotes", req, &out); err != nil {
		return nil, err
	}
	return out.Quotes, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Outcome != "" {
			return fmt.Errorf("prodigi: %s (status %d)", apiErr.Outcome, resp.StatusCode)
		}
		return fmt.Errorf("prodigi: unexpected status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
