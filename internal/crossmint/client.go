// Package crossmint is a client for the Crossmint hosted checkout orders API
// and its webhooks.
package crossmint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://staging.crossmint.com/api"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrMissingOrderID is returned when a create response carries no order id.
var ErrMissingOrderID = errors.New("crossmint response has no order id")

// Client calls the Crossmint orders API.
type Client struct {
	baseURL       string
	apiKey        string
	appIdentifier string
	client        *http.Client
	maxRetries    int
	retryDelay    time.Duration
	maxDelay      time.Duration
	backoffMult   float64
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for idempotent reads.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// NewClient creates a new orders API client. appIdentifier is sent as
// x-app-identifier, which Crossmint requires for mobile app keys.
func NewClient(baseURL, apiKey, appIdentifier string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		appIdentifier: appIdentifier,
		client:        &http.Client{Timeout: DefaultTimeout},
		maxRetries:    DefaultMaxRetries,
		retryDelay:    DefaultRetryDelay,
		maxDelay:      DefaultMaxDelay,
		backoffMult:   DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateOrderRequest describes a single-item purchase.
type CreateOrderRequest struct {
	CollectionLocator string
	RecipientAddress  string
	TotalPrice        decimal.Decimal
	Currency          string
	PaymentMethod     string
	ReceiptEmail      string
}

// Order is the subset of a Crossmint order the storefront reads.
type Order struct {
	OrderID       string
	CheckoutURL   string
	Phase         string
	PaymentStatus string
	Raw           json.RawMessage
}

// APIError is a non-2xx answer from the orders API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crossmint api error (status %d): %s", e.StatusCode, e.Message)
}

type lineItems struct {
	CollectionLocator string   `json:"collectionLocator"`
	CallData          callData `json:"callData"`
}

type callData struct {
	TotalPrice string `json:"totalPrice"`
	Quantity   int    `json:"quantity"`
}

type payment struct {
	Method       string `json:"method"`
	Currency     string `json:"currency"`
	ReceiptEmail string `json:"receiptEmail,omitempty"`
}

type recipient struct {
	WalletAddress string `json:"walletAddress"`
}

type createOrderBody struct {
	LineItems lineItems `json:"lineItems"`
	Payment   payment   `json:"payment"`
	Recipient recipient `json:"recipient"`
}

// orderEnvelope accepts the response shapes seen in the wild:
// top-level orderId, data.orderId, or id.
type orderEnvelope struct {
	OrderID     string `json:"orderId"`
	ID          string `json:"id"`
	CheckoutURL string `json:"checkoutUrl"`
	Phase       string `json:"phase"`
	Payment     struct {
		Status string `json:"status"`
	} `json:"payment"`
	Data struct {
		OrderID string `json:"orderId"`
	} `json:"data"`
	Order *struct {
		OrderID string `json:"orderId"`
		Phase   string `json:"phase"`
		Payment struct {
			Status string `json:"status"`
		} `json:"payment"`
	} `json:"order"`
}

func (e orderEnvelope) order(raw []byte) *Order {
	o := &Order{
		OrderID:       firstNonEmpty(e.OrderID, e.Data.OrderID, e.ID),
		CheckoutURL:   e.CheckoutURL,
		Phase:         e.Phase,
		PaymentStatus: e.Payment.Status,
		Raw:           json.RawMessage(raw),
	}
	if e.Order != nil {
		o.OrderID = firstNonEmpty(o.OrderID, e.Order.OrderID)
		o.Phase = firstNonEmpty(o.Phase, e.Order.Phase)
		o.PaymentStatus = firstNonEmpty(o.PaymentStatus, e.Order.Payment.Status)
	}
	return o
}

// CreateOrder starts a hosted checkout order. Not retried: a lost response
// could otherwise create a second order.
func (c *Client) CreateOrder(ctx context.Context, r CreateOrderRequest) (*Order, error) {
	if r.CollectionLocator == "" || r.RecipientAddress == "" {
		return nil, errors.New("collection locator and recipient address are required")
	}
	if !r.TotalPrice.IsPositive() {
		return nil, fmt.Errorf("total price must be positive, got %s", r.TotalPrice)
	}

	body, err := json.Marshal(createOrderBody{
		LineItems: lineItems{
			CollectionLocator: r.CollectionLocator,
			CallData: callData{
				TotalPrice: r.TotalPrice.String(),
				Quantity:   1,
			},
		},
		Payment: payment{
			Method:       r.PaymentMethod,
			Currency:     r.Currency,
			ReceiptEmail: r.ReceiptEmail,
		},
		Recipient: recipient{WalletAddress: r.RecipientAddress},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/orders", body, 0)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var env orderEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o := env.order(raw)
	if o.OrderID == "" {
		return nil, ErrMissingOrderID
	}
	return o, nil
}

// GetOrder fetches an order by its Crossmint id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}

	raw, err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), nil, c.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}

	var env orderEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o := env.order(raw)
	if o.OrderID == "" {
		o.OrderID = orderID
	}
	return o, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, maxRetries int) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-app-identifier", c.appIdentifier)
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		apiErr := decodeAPIError(resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = apiErr
			continue
		}
		return nil, apiErr
	}

	if maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func decodeAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(body, &payload); err == nil {
		msg = firstNonEmpty(payload.Message, payload.Error)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
