package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/storage"
)

// OrderStore implements storage.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

const orderColumns = `
	id, provider_order_id, collection_id, collection_locator, recipient_address,
	price::text, currency, status, checkout_url, failure_reason, token_id,
	created_at, updated_at
`

// Insert adds a new order. Returns ErrDuplicateKey if id or provider_order_id exists.
func (s *OrderStore) Insert(ctx context.Context, o *domain.Order) (err error) {
	if o == nil || o.ID == "" || o.ProviderOrderID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_order", time.Now(), &err)

	query := `
		INSERT INTO orders (
			id, provider_order_id, collection_id, collection_locator, recipient_address,
			price, currency, status, checkout_url, failure_reason, token_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		o.ID,
		o.ProviderOrderID,
		o.CollectionID,
		o.CollectionLocator,
		o.RecipientAddress,
		o.Price.String(),
		o.Currency,
		string(o.Status),
		o.CheckoutURL,
		o.FailureReason,
		o.TokenID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	return translate("insert order", err)
}

// GetByID retrieves an order by its ID. Returns ErrNotFound if not exists.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOne(ctx, "get_order", `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByProviderOrderID retrieves an order by the provider's id.
func (s *OrderStore) GetByProviderOrderID(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	return s.getOne(ctx, "get_order_by_provider", `SELECT `+orderColumns+` FROM orders WHERE provider_order_id = $1`, providerOrderID)
}

func (s *OrderStore) getOne(ctx context.Context, operation, query string, arg string) (o *domain.Order, err error) {
	defer observe(operation, time.Now(), &err)

	o, err = scanOrder(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(operation, err)
	}
	return o, nil
}

// GetByRecipient retrieves all orders for a wallet, ordered by created_at DESC.
func (s *OrderStore) GetByRecipient(ctx context.Context, recipientAddress string) (result []*domain.Order, err error) {
	defer observe("get_orders_by_recipient", time.Now(), &err)

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE recipient_address = $1
		ORDER BY created_at DESC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, recipientAddress)
	if err != nil {
		return nil, fmt.Errorf("query orders by recipient: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return result, nil
}

// Update overwrites the mutable fields of an order. Returns ErrNotFound if not exists.
func (s *OrderStore) Update(ctx context.Context, o *domain.Order) (err error) {
	if o == nil || o.ID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("update_order", time.Now(), &err)

	query := `
		UPDATE orders
		SET status = $2, checkout_url = $3, failure_reason = $4, token_id = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		o.ID,
		string(o.Status),
		o.CheckoutURL,
		o.FailureReason,
		o.TokenID,
		o.UpdatedAt,
	)
	if err != nil {
		return translate("update order", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanOrder scans a single row into domain.Order.
func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		price  string
		status string
	)
	err := row.Scan(
		&o.ID,
		&o.ProviderOrderID,
		&o.CollectionID,
		&o.CollectionLocator,
		&o.RecipientAddress,
		&price,
		&o.Currency,
		&status,
		&o.CheckoutURL,
		&o.FailureReason,
		&o.TokenID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
