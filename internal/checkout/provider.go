// Package checkout starts purchases through a hosted checkout provider and
// tracks the resulting orders.
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"nft-storefront/internal/domain"
)

var (
	// ErrInvalidRequest is returned for checkout requests that cannot be started.
	ErrInvalidRequest = errors.New("invalid checkout request")

	// ErrUnknownCollection is returned when the collection id is not configured.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrOrderNotFound is returned when no order matches an id or provider event.
	ErrOrderNotFound = errors.New("order not found")
)

// Request describes a single-item purchase.
type Request struct {
	CollectionLocator string
	RecipientAddress  string
	Price             decimal.Decimal
}

// Validate checks the request fields.
func (r Request) Validate() error {
	switch {
	case r.CollectionLocator == "":
		return fmt.Errorf("%w: collection locator is required", ErrInvalidRequest)
	case r.RecipientAddress == "":
		return fmt.Errorf("%w: recipient address is required", ErrInvalidRequest)
	case !r.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive", ErrInvalidRequest)
	}
	return nil
}

// Started is the provider's answer to a new checkout.
type Started struct {
	ProviderOrderID string
	CheckoutURL     string
}

// Event is a provider notification about an order.
type Event struct {
	ID              string
	ProviderOrderID string
	Kind            domain.CheckoutEventKind
	RawType         string
	TokenID         string
	Reason          string
	Payload         []byte
}

// Status is the provider's current view of an order.
type Status struct {
	ProviderOrderID string
	Phase           string
	PaymentStatus   string
}

// Provider is a hosted checkout backend.
type Provider interface {
	// Start creates a provider order for r.
	Start(ctx context.Context, r Request) (*Started, error)

	// ParseEvent authenticates and decodes a provider notification.
	ParseEvent(signature string, body []byte) (*Event, error)

	// Status fetches the provider's view of an order.
	Status(ctx context.Context, providerOrderID string) (*Status, error)
}
