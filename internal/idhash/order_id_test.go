package idhash

import (
	"testing"

	"github.com/mr-tron/base58"
)

func TestComputeOrderID(t *testing.T) {
	tests := []struct {
		name       string
		providerID string
		collection string
		recipient  string
	}{
		{"typical", "ord_123", "xion-nft-1", "xion1qwertyuiopasdfghjklzxcvbnm"},
		{"empty provider id", "", "xion-nft-1", "xion1abc"},
		{"all empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ComputeOrderID(tt.providerID, tt.collection, tt.recipient)

			raw, err := base58.Decode(id)
			if err != nil {
				t.Fatalf("id is not base58: %v", err)
			}
			if len(raw) != 32 {
				t.Errorf("decoded length = %d, want 32", len(raw))
			}

			// Determinism
			if again := ComputeOrderID(tt.providerID, tt.collection, tt.recipient); again != id {
				t.Errorf("not deterministic: %s != %s", id, again)
			}
		})
	}
}

func TestComputeOrderID_Distinct(t *testing.T) {
	a := ComputeOrderID("ord_1", "c1", "xion1a")
	b := ComputeOrderID("ord_2", "c1", "xion1a")
	c := ComputeOrderID("ord_1", "c2", "xion1a")
	d := ComputeOrderID("ord_1", "c1", "xion1b")

	seen := map[string]bool{}
	for _, id := range []string{a, b, c, d} {
		if seen[id] {
			t.Fatalf("collision for %s", id)
		}
		seen[id] = true
	}
}

func TestComputeEventID(t *testing.T) {
	payload := []byte(`{"type":"order.completed"}`)

	id := ComputeEventID("order.completed", "ord_1", payload)
	if len(id) != 64 {
		t.Fatalf("len = %d, want 64", len(id))
	}
	if id != ComputeEventID("order.completed", "ord_1", payload) {
		t.Error("not deterministic")
	}
	if id == ComputeEventID("order.failed", "ord_1", payload) {
		t.Error("event type not part of the hash")
	}
	if id == ComputeEventID("order.completed", "ord_1", []byte(`{}`)) {
		t.Error("payload not part of the hash")
	}
}
