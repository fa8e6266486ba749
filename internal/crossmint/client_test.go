package crossmint

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() CreateOrderRequest {
	return CreateOrderRequest{
		CollectionLocator: "crossmint:coll-1",
		RecipientAddress:  "xion1recipient",
		TotalPrice:        decimal.RequireFromString("0.001"),
		Currency:          "usd",
		PaymentMethod:     "fiat",
		ReceiptEmail:      "buyer@example.com",
	}
}

func TestCreateOrder_RequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/orders", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "com.storefront.app", r.Header.Get("x-app-identifier"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"lineItems": {
				"collectionLocator": "crossmint:coll-1",
				"callData": {"totalPrice": "0.001", "quantity": 1}
			},
			"payment": {"method": "fiat", "currency": "usd", "receiptEmail": "buyer@example.com"},
			"recipient": {"walletAddress": "xion1recipient"}
		}`, string(body))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"ord_1","checkoutUrl":"https://checkout/ord_1","phase":"payment"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/", "sk_test", "com.storefront.app")
	order, err := client.CreateOrder(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "ord_1", order.OrderID)
	assert.Equal(t, "https://checkout/ord_1", order.CheckoutURL)
	assert.Equal(t, "payment", order.Phase)
}

func TestCreateOrder_OmitsEmptyEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, has := body["payment"]["receiptEmail"]
		assert.False(t, has)
		_, _ = w.Write([]byte(`{"orderId":"ord_1"}`))
	}))
	defer server.Close()

	req := testRequest()
	req.ReceiptEmail = ""
	_, err := NewClient(server.URL, "k", "app").CreateOrder(context.Background(), req)
	require.NoError(t, err)
}

func TestCreateOrder_OrderIDShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"top level orderId", `{"orderId":"a","id":"c"}`, "a"},
		{"nested data.orderId", `{"data":{"orderId":"b"},"id":"c"}`, "b"},
		{"plain id", `{"id":"c"}`, "c"},
		{"order envelope", `{"order":{"orderId":"d"}}`, "d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			order, err := NewClient(server.URL, "k", "app").CreateOrder(context.Background(), testRequest())
			require.NoError(t, err)
			assert.Equal(t, tt.want, order.OrderID)
		})
	}
}

func TestCreateOrder_MissingOrderID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"checkoutUrl":"https://x"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", "app").CreateOrder(context.Background(), testRequest())
	assert.ErrorIs(t, err, ErrMissingOrderID)
}

func TestCreateOrder_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"try later"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", "app", WithRetryDelay(time.Millisecond)).
		CreateOrder(context.Background(), testRequest())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "try later", apiErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateOrder_Validation(t *testing.T) {
	client := NewClient("http://unused", "k", "app")

	req := testRequest()
	req.RecipientAddress = ""
	_, err := client.CreateOrder(context.Background(), req)
	assert.Error(t, err)

	req = testRequest()
	req.TotalPrice = decimal.Zero
	_, err = client.CreateOrder(context.Background(), req)
	assert.Error(t, err)
}

func TestGetOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/orders/ord_1", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"orderId":"ord_1","phase":"completed","payment":{"status":"completed"}}`))
	}))
	defer server.Close()

	order, err := NewClient(server.URL, "k", "app").GetOrder(context.Background(), "ord_1")
	require.NoError(t, err)

	assert.Equal(t, "ord_1", order.OrderID)
	assert.Equal(t, "completed", order.Phase)
	assert.Equal(t, "completed", order.PaymentStatus)
	assert.NotEmpty(t, order.Raw)
}

func TestGetOrder_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"orderId":"ord_1","phase":"delivery"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "app", WithMaxRetries(3), WithRetryDelay(time.Millisecond))
	order, err := client.GetOrder(context.Background(), "ord_1")
	require.NoError(t, err)

	assert.Equal(t, "delivery", order.Phase)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetOrder_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`order not found`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "k", "app").GetOrder(context.Background(), "missing")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "order not found", apiErr.Message)
}

func TestGetOrder_MaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", "app", WithMaxRetries(1), WithRetryDelay(time.Millisecond))
	_, err := client.GetOrder(context.Background(), "ord_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}
