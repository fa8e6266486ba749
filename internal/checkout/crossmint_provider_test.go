package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nft-storefront/internal/crossmint"
	"nft-storefront/internal/domain"
)

func TestCrossmintProvider_Start(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"orderId":"ord_9"},"checkoutUrl":"https://pay/ord_9"}`))
	}))
	defer server.Close()

	provider := NewCrossmintProvider(crossmint.NewClient(server.URL, "k", "app"), "usd", "fiat", "")
	started, err := provider.Start(context.Background(), Request{
		CollectionLocator: "crossmint:coll-a",
		RecipientAddress:  "xion1buyer",
		Price:             decimal.RequireFromString("0.001"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ord_9", started.ProviderOrderID)
	assert.Equal(t, "https://pay/ord_9", started.CheckoutURL)
}

func TestCrossmintProvider_StartInvalid(t *testing.T) {
	provider := NewCrossmintProvider(crossmint.NewClient("http://unused", "k", "app"), "usd", "fiat", "")

	_, err := provider.Start(context.Background(), Request{CollectionLocator: "crossmint:a", RecipientAddress: "xion1b"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCrossmintProvider_ParseEvent(t *testing.T) {
	provider := NewCrossmintProvider(nil, "usd", "fiat", "whsec")
	body := []byte(`{"event":"nft.minted","data":{"orderId":"ord_1","tokenId":5}}`)

	ev, err := provider.ParseEvent(crossmint.Sign("whsec", body), body)
	require.NoError(t, err)

	assert.Equal(t, domain.CheckoutEventMinted, ev.Kind)
	assert.Equal(t, "nft.minted", ev.RawType)
	assert.Equal(t, "ord_1", ev.ProviderOrderID)
	assert.Equal(t, "5", ev.TokenID)
	assert.Len(t, ev.ID, 64, "derived event id")
	assert.Equal(t, body, ev.Payload)

	_, err = provider.ParseEvent("deadbeef", body)
	assert.ErrorIs(t, err, crossmint.ErrInvalidSignature)
}

func TestCrossmintProvider_ParseEventNoSecret(t *testing.T) {
	provider := NewCrossmintProvider(nil, "usd", "fiat", "")

	ev, err := provider.ParseEvent("", []byte(`{"id":"evt_1","event":"order.paid","data":{"orderId":"ord_1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, domain.CheckoutEventOther, ev.Kind)
}

func TestCrossmintProvider_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders/ord_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"orderId":"ord_1","phase":"completed","payment":{"status":"completed"}}`))
	}))
	defer server.Close()

	provider := NewCrossmintProvider(crossmint.NewClient(server.URL, "k", "app"), "usd", "fiat", "")
	status, err := provider.Status(context.Background(), "ord_1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Phase)
	assert.Equal(t, "completed", status.PaymentStatus)
}
