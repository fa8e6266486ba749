package clickhouse

import (
	"context"
	"fmt"
	"time"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/observability"
	"nft-storefront/internal/storage"
)

// CheckoutEventStore implements storage.CheckoutEventStore using ClickHouse.
type CheckoutEventStore struct {
	conn *Conn
}

// NewCheckoutEventStore creates a new CheckoutEventStore.
func NewCheckoutEventStore(conn *Conn) *CheckoutEventStore {
	return &CheckoutEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CheckoutEventStore = (*CheckoutEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
// MergeTree does not enforce uniqueness, so the check is explicit.
func (s *CheckoutEventStore) Insert(ctx context.Context, e *domain.CheckoutEvent) (err error) {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_checkout_event", time.Since(start).Seconds(), err)
	}()

	exists, err := s.exists(ctx, e.EventID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO checkout_events (
			event_id, provider_order_id, kind, raw_type, received_at, payload
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.EventID,
		e.ProviderOrderID,
		string(e.Kind),
		e.RawType,
		e.ReceivedAt.UTC(),
		string(e.Payload),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByProviderOrderID retrieves all events for an order, ordered by received_at ASC.
func (s *CheckoutEventStore) GetByProviderOrderID(ctx context.Context, providerOrderID string) (result []*domain.CheckoutEvent, err error) {
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "get_checkout_events", time.Since(start).Seconds(), err)
	}()

	query := `
		SELECT event_id, provider_order_id, kind, raw_type, received_at, payload
		FROM checkout_events FINAL
		WHERE provider_order_id = ?
		ORDER BY received_at ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("query by provider order id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e       domain.CheckoutEvent
			kind    string
			payload string
		)
		if err := rows.Scan(&e.EventID, &e.ProviderOrderID, &kind, &e.RawType, &e.ReceivedAt, &payload); err != nil {
			return nil, fmt.Errorf("scan checkout event: %w", err)
		}
		e.Kind = domain.CheckoutEventKind(kind)
		e.Payload = []byte(payload)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkout events: %w", err)
	}
	return result, nil
}

// exists checks if an event with the given id exists.
func (s *CheckoutEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT count(*) FROM checkout_events WHERE event_id = ?`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
