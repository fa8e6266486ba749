package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a checkout order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSucceeded OrderStatus = "succeeded"
	OrderStatusFailed    OrderStatus = "failed"
)

// String returns the string representation of OrderStatus.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a known value.
func (s OrderStatus) IsValid() bool {
	return s == OrderStatusPending || s == OrderStatusSucceeded || s == OrderStatusFailed
}

// IsTerminal reports whether no further status transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusSucceeded || s == OrderStatusFailed
}

// Order is a purchase started through the checkout provider.
// Corresponds to the orders table in PostgreSQL.
type Order struct {
	ID                string          // PRIMARY KEY, deterministic base58 hash
	ProviderOrderID   string          // id assigned by the checkout provider
	CollectionID      string          // configured collection id
	CollectionLocator string          // provider locator, e.g. crossmint:<id>
	RecipientAddress  string          // wallet receiving the NFT
	Price             decimal.Decimal // total price charged
	Currency          string          // e.g. usd
	Status            OrderStatus
	CheckoutURL       string  // hosted checkout page, may be empty
	FailureReason     *string // set when Status == failed
	TokenID           *string // set once the NFT is minted
	CreatedAt         int64   // ms
	UpdatedAt         int64   // ms
}

// CheckoutEventKind classifies provider events.
type CheckoutEventKind string

const (
	CheckoutEventSucceeded CheckoutEventKind = "succeeded"
	CheckoutEventFailed    CheckoutEventKind = "failed"
	CheckoutEventMinted    CheckoutEventKind = "minted"
	CheckoutEventOther     CheckoutEventKind = "other"
)

// CheckoutEvent is one provider event, kept append-only for auditing.
// Corresponds to checkout_events table in ClickHouse.
type CheckoutEvent struct {
	EventID         string            // provider delivery id
	ProviderOrderID string            // provider order the event refers to
	Kind            CheckoutEventKind // normalized kind
	RawType         string            // provider event type, e.g. order.completed
	ReceivedAt      time.Time
	Payload         []byte // raw JSON body
}
