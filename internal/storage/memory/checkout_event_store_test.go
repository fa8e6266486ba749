package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/storage"
)

func TestCheckoutEventStore_InsertAndGet(t *testing.T) {
	store := NewCheckoutEventStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	events := []*domain.CheckoutEvent{
		{EventID: "e2", ProviderOrderID: "ord_1", Kind: domain.CheckoutEventMinted, RawType: "nft.minted", ReceivedAt: base.Add(2 * time.Second)},
		{EventID: "e1", ProviderOrderID: "ord_1", Kind: domain.CheckoutEventSucceeded, RawType: "order.completed", ReceivedAt: base.Add(time.Second)},
		{EventID: "e3", ProviderOrderID: "ord_2", Kind: domain.CheckoutEventFailed, RawType: "order.failed", ReceivedAt: base},
	}
	for _, e := range events {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByProviderOrderID(ctx, "ord_1")
	if err != nil {
		t.Fatalf("GetByProviderOrderID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].EventID != "e1" || got[1].EventID != "e2" {
		t.Errorf("expected [e1 e2], got [%s %s]", got[0].EventID, got[1].EventID)
	}
}

func TestCheckoutEventStore_DuplicateKey(t *testing.T) {
	store := NewCheckoutEventStore()
	ctx := context.Background()

	e := &domain.CheckoutEvent{EventID: "e1", ProviderOrderID: "ord_1", Kind: domain.CheckoutEventSucceeded}
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, e); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCheckoutEventStore_InvalidInput(t *testing.T) {
	store := NewCheckoutEventStore()

	if err := store.Insert(context.Background(), &domain.CheckoutEvent{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCheckoutEventStore_PayloadCopied(t *testing.T) {
	store := NewCheckoutEventStore()
	ctx := context.Background()

	payload := []byte(`{"a":1}`)
	if err := store.Insert(ctx, &domain.CheckoutEvent{EventID: "e1", ProviderOrderID: "ord_1", Payload: payload}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	payload[0] = 'X'

	got, _ := store.GetByProviderOrderID(ctx, "ord_1")
	if string(got[0].Payload) != `{"a":1}` {
		t.Errorf("payload shares memory with caller: %s", got[0].Payload)
	}
}
