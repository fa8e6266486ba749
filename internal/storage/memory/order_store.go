package memory

import (
	"context"
	"sort"
	"sync"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/storage"
)

// OrderStore is an in-memory implementation of storage.OrderStore.
type OrderStore struct {
	mu         sync.RWMutex
	data       map[string]*domain.Order // keyed by id
	byProvider map[string]string        // provider_order_id -> id
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		data:       make(map[string]*domain.Order),
		byProvider: make(map[string]string),
	}
}

var _ storage.OrderStore = (*OrderStore)(nil)

// Insert adds a new order. Returns ErrDuplicateKey if id or provider_order_id exists.
func (s *OrderStore) Insert(_ context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" || o.ProviderOrderID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.ID]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byProvider[o.ProviderOrderID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[o.ID] = cloneOrder(o)
	s.byProvider[o.ProviderOrderID] = o.ID
	return nil
}

// GetByID retrieves an order by its ID. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneOrder(o), nil
}

// GetByProviderOrderID retrieves an order by the provider's id.
func (s *OrderStore) GetByProviderOrderID(_ context.Context, providerOrderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byProvider[providerOrderID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneOrder(s.data[id]), nil
}

// GetByRecipient retrieves all orders for a wallet, newest first.
func (s *OrderStore) GetByRecipient(_ context.Context, recipientAddress string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Order
	for _, o := range s.data {
		if o.RecipientAddress == recipientAddress {
			result = append(result, cloneOrder(o))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Update overwrites the mutable fields of an existing order.
func (s *OrderStore) Update(_ context.Context, o *domain.Order) error {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[o.ID]
	if !exists {
		return storage.ErrNotFound
	}

	next := cloneOrder(cur)
	next.Status = o.Status
	next.CheckoutURL = o.CheckoutURL
	next.FailureReason = cloneString(o.FailureReason)
	next.TokenID = cloneString(o.TokenID)
	next.UpdatedAt = o.UpdatedAt
	s.data[o.ID] = next
	return nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.FailureReason = cloneString(o.FailureReason)
	c.TokenID = cloneString(o.TokenID)
	return &c
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
