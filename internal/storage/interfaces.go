package storage

import (
	"context"
	"time"

	"nft-storefront/internal/domain"
)

// OrderStore provides access to orders storage.
type OrderStore interface {
	// Insert adds a new order. Returns ErrDuplicateKey if id or provider_order_id exists.
	Insert(ctx context.Context, o *domain.Order) error

	// GetByID retrieves an order by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByProviderOrderID retrieves an order by the checkout provider's id.
	// Returns ErrNotFound if not exists.
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error)

	// GetByRecipient retrieves all orders for a wallet, ordered by created_at DESC.
	GetByRecipient(ctx context.Context, recipientAddress string) ([]*domain.Order, error)

	// Update overwrites the mutable fields of an order
	// (status, checkout_url, failure_reason, token_id, updated_at).
	// Returns ErrNotFound if not exists.
	Update(ctx context.Context, o *domain.Order) error
}

// CheckoutEventStore provides access to checkout_events storage.
// Events are append-only.
type CheckoutEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.CheckoutEvent) error

	// GetByProviderOrderID retrieves all events for an order, ordered by received_at ASC.
	GetByProviderOrderID(ctx context.Context, providerOrderID string) ([]*domain.CheckoutEvent, error)
}

// SessionStore provides access to connected wallet sessions.
type SessionStore interface {
	// Put stores a session. A ttl <= 0 keeps it until deleted.
	Put(ctx context.Context, s *domain.Session, ttl time.Duration) error

	// Get retrieves a session by ID. Returns ErrNotFound if not exists or expired.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes a session. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error
}
