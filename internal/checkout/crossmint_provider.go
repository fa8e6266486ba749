package checkout

import (
	"context"

	"nft-storefront/internal/crossmint"
	"nft-storefront/internal/domain"
	"nft-storefront/internal/idhash"
)

// LocatorPrefix is prepended to collection ids to form Crossmint locators.
const LocatorPrefix = "crossmint:"

// CrossmintProvider implements Provider on the Crossmint orders API.
type CrossmintProvider struct {
	client        *crossmint.Client
	currency      string
	paymentMethod string
	webhookSecret string
}

// NewCrossmintProvider creates a provider. An empty webhookSecret disables
// signature checks.
func NewCrossmintProvider(client *crossmint.Client, currency, paymentMethod, webhookSecret string) *CrossmintProvider {
	return &CrossmintProvider{
		client:        client,
		currency:      currency,
		paymentMethod: paymentMethod,
		webhookSecret: webhookSecret,
	}
}

var _ Provider = (*CrossmintProvider)(nil)

// Start creates a Crossmint order.
func (p *CrossmintProvider) Start(ctx context.Context, r Request) (*Started, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	order, err := p.client.CreateOrder(ctx, crossmint.CreateOrderRequest{
		CollectionLocator: r.CollectionLocator,
		RecipientAddress:  r.RecipientAddress,
		TotalPrice:        r.Price,
		Currency:          p.currency,
		PaymentMethod:     p.paymentMethod,
	})
	if err != nil {
		return nil, err
	}
	return &Started{ProviderOrderID: order.OrderID, CheckoutURL: order.CheckoutURL}, nil
}

// ParseEvent verifies and decodes a webhook delivery.
func (p *CrossmintProvider) ParseEvent(signature string, body []byte) (*Event, error) {
	if p.webhookSecret != "" {
		if err := crossmint.VerifySignature(p.webhookSecret, body, signature); err != nil {
			return nil, err
		}
	}

	wh, err := crossmint.ParseWebhook(body)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		ID:              wh.ID,
		ProviderOrderID: wh.OrderID,
		Kind:            kindOf(wh.Type),
		RawType:         wh.Type,
		TokenID:         wh.TokenID,
		Reason:          wh.Error,
		Payload:         body,
	}
	if ev.ID == "" {
		ev.ID = idhash.ComputeEventID(wh.Type, wh.OrderID, body)
	}
	return ev, nil
}

// Status fetches the Crossmint order.
func (p *CrossmintProvider) Status(ctx context.Context, providerOrderID string) (*Status, error) {
	order, err := p.client.GetOrder(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}
	return &Status{
		ProviderOrderID: order.OrderID,
		Phase:           order.Phase,
		PaymentStatus:   order.PaymentStatus,
	}, nil
}

func kindOf(eventType string) domain.CheckoutEventKind {
	switch eventType {
	case crossmint.EventOrderCompleted:
		return domain.CheckoutEventSucceeded
	case crossmint.EventOrderFailed:
		return domain.CheckoutEventFailed
	case crossmint.EventNFTMinted:
		return domain.CheckoutEventMinted
	default:
		return domain.CheckoutEventOther
	}
}
