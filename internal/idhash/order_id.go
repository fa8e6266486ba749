// Package idhash derives deterministic identifiers for checkout records.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeOrderID computes a deterministic order id.
// Formula: base58(SHA256(provider_order_id|collection_id|recipient_address))
func ComputeOrderID(providerOrderID, collectionID, recipientAddress string) string {
	data := fmt.Sprintf("%s|%s|%s", providerOrderID, collectionID, recipientAddress)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeEventID derives an event id from a provider event type, order id and
// raw body. Used when the provider delivery carries no id of its own.
// Returns hex-encoded hash (64 characters).
func ComputeEventID(eventType, providerOrderID string, payload []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|", eventType, providerOrderID)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
