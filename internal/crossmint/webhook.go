package crossmint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "x-crossmint-signature"

// Webhook event types.
const (
	EventOrderCompleted = "order.completed"
	EventOrderFailed    = "order.failed"
	EventNFTMinted      = "nft.minted"
)

var (
	// ErrInvalidSignature is returned when a webhook signature is missing or wrong.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMalformedEvent is returned for bodies that are not a webhook event.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// WebhookEvent is a decoded webhook delivery.
type WebhookEvent struct {
	ID      string // delivery id, empty when the provider sent none
	Type    string
	OrderID string
	TokenID string
	Error   string
}

type webhookBody struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Type  string `json:"type"`
	Data  struct {
		OrderID string          `json:"orderId"`
		TokenID json.RawMessage `json:"tokenId"`
		Error   json.RawMessage `json:"error"`
	} `json:"data"`
}

// ParseWebhook decodes a webhook body of the form {"event": ..., "data": {...}}.
func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var b webhookBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	ev := &WebhookEvent{
		ID:      b.ID,
		Type:    firstNonEmpty(b.Event, b.Type),
		OrderID: b.Data.OrderID,
		TokenID: scalarString(b.Data.TokenID),
		Error:   errorString(b.Data.Error),
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}
	if ev.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrMalformedEvent)
	}
	return ev, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against body. An optional "sha256=" prefix
// is accepted.
func VerifySignature(secret string, body []byte, signature string) error {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return fmt.Errorf("%w: missing", ErrInvalidSignature)
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: not hex", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// scalarString renders a JSON string or number as text.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// errorString accepts either "reason" or {"message": "reason"}.
func errorString(raw json.RawMessage) string {
	if s := scalarString(raw); s != "" {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Message
	}
	return ""
}
