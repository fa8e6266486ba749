package memory

import (
	"context"
	"sort"
	"sync"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/storage"
)

// CheckoutEventStore is an in-memory implementation of storage.CheckoutEventStore.
type CheckoutEventStore struct {
	mu     sync.RWMutex
	events []*domain.CheckoutEvent
	ids    map[string]struct{}
}

// NewCheckoutEventStore creates a new in-memory checkout event store.
func NewCheckoutEventStore() *CheckoutEventStore {
	return &CheckoutEventStore{
		ids: make(map[string]struct{}),
	}
}

var _ storage.CheckoutEventStore = (*CheckoutEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *CheckoutEventStore) Insert(_ context.Context, e *domain.CheckoutEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	s.ids[e.EventID] = struct{}{}
	s.events = append(s.events, cloneEvent(e))
	return nil
}

// GetByProviderOrderID retrieves all events for an order, ordered by received_at ASC.
func (s *CheckoutEventStore) GetByProviderOrderID(_ context.Context, providerOrderID string) ([]*domain.CheckoutEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CheckoutEvent
	for _, e := range s.events {
		if e.ProviderOrderID == providerOrderID {
			result = append(result, cloneEvent(e))
		}
	}

	// Stable keeps insertion order for equal timestamps
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ReceivedAt.Before(result[j].ReceivedAt)
	})

	return result, nil
}

func cloneEvent(e *domain.CheckoutEvent) *domain.CheckoutEvent {
	c := *e
	if e.Payload != nil {
		c.Payload = append([]byte(nil), e.Payload...)
	}
	return &c
}
