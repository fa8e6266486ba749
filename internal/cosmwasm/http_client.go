package cosmwasm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nft-storefront/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements QueryClient against the LCD endpoint
// GET /cosmwasm/wasm/v1/contract/{address}/smart/{base64url query}.
type HTTPClient struct {
	baseURL     string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new LCD smart query client.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ QueryClient = (*HTTPClient)(nil)

// smartQueryResponse is the LCD response envelope.
type smartQueryResponse struct {
	Data json.RawMessage `json:"data"`
}

// QuerySmartContract runs a smart query with retries and exponential backoff.
// Transport errors, 429 and 502/503/504 are retried; contract errors are returned as *QueryError.
func (c *HTTPClient) QuerySmartContract(ctx context.Context, contractAddress string, query any) (json.RawMessage, error) {
	if contractAddress == "" {
		return nil, errors.New("contract address is required")
	}

	start := time.Now()
	result, err := c.query(ctx, contractAddress, query)
	observability.RecordChainQuery(QueryKind(query), time.Since(start).Seconds(), err)
	return result, err
}

func (c *HTTPClient) query(ctx context.Context, contractAddress string, query any) (json.RawMessage, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	endpoint := fmt.Sprintf("%s/cosmwasm/wasm/v1/contract/%s/smart/%s",
		c.baseURL,
		url.PathEscape(contractAddress),
		base64.URLEncoding.EncodeToString(payload),
	)

	delay := c.retryDelay
	var (
		lastErr    error
		retryAfter time.Duration
	)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := delay
			if retryAfter > 0 {
				wait = min(retryAfter, c.maxDelay)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			delay = min(time.Duration(float64(delay)*c.backoffMult), c.maxDelay)
		}
		retryAfter = 0

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if retryableStatus(resp.StatusCode) {
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, decodeQueryError(resp.StatusCode, body)
		}

		var out smartQueryResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return out.Data, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// parseRetryAfter reads a delay-seconds Retry-After value. HTTP-date values are ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// decodeQueryError builds a QueryError from a grpc-gateway style error body.
func decodeQueryError(status int, body []byte) error {
	qe := &QueryError{StatusCode: status}
	if err := json.Unmarshal(body, qe); err != nil || qe.Message == "" {
		qe.Message = strings.TrimSpace(string(body))
	}
	return qe
}
