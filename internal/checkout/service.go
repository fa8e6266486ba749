package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nft-storefront/internal/domain"
	"nft-storefront/internal/idhash"
	"nft-storefront/internal/observability"
	"nft-storefront/internal/session"
	"nft-storefront/internal/storage"
)

// Options configures a Service.
type Options struct {
	Provider    Provider
	Orders      storage.OrderStore
	Events      storage.CheckoutEventStore // optional audit log
	Collections []domain.CollectionDescriptor
	Price       decimal.Decimal
	Currency    string
	Logger      *zap.Logger
}

// Service starts checkouts and applies provider events to orders.
type Service struct {
	provider    Provider
	orders      storage.OrderStore
	events      storage.CheckoutEventStore
	collections map[string]domain.CollectionDescriptor
	price       decimal.Decimal
	currency    string
	logger      *zap.Logger
	now         func() time.Time

	// serializes read-modify-write of orders from concurrent webhooks
	mu sync.Mutex
}

// NewService creates a checkout service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	collections := make(map[string]domain.CollectionDescriptor, len(opts.Collections))
	for _, c := range opts.Collections {
		collections[c.ID] = c
	}
	return &Service{
		provider:    opts.Provider,
		orders:      opts.Orders,
		events:      opts.Events,
		collections: collections,
		price:       opts.Price,
		currency:    opts.Currency,
		logger:      logger,
		now:         time.Now,
	}
}

// Checkout starts a purchase of one item from collectionID for the session's wallet.
// A logged-out session yields session.ErrNotConnected.
func (s *Service) Checkout(ctx context.Context, sess *domain.Session, collectionID string) (*domain.Order, error) {
	if !sess.Connected() {
		return nil, session.ErrNotConnected
	}
	if _, ok := s.collections[collectionID]; !ok {
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidRequest, ErrUnknownCollection, collectionID)
	}

	req := Request{
		CollectionLocator: LocatorPrefix + collectionID,
		RecipientAddress:  sess.AccountAddress,
		Price:             s.price,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started, err := s.provider.Start(ctx, req)
	if err != nil {
		observability.RecordOrderCreated("error")
		s.logger.Error("checkout start failed",
			zap.String("collection_id", collectionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("start checkout: %w", err)
	}

	now := s.now().UnixMilli()
	order := &domain.Order{
		ID:                idhash.ComputeOrderID(started.ProviderOrderID, collectionID, sess.AccountAddress),
		ProviderOrderID:   started.ProviderOrderID,
		CollectionID:      collectionID,
		CollectionLocator: req.CollectionLocator,
		RecipientAddress:  sess.AccountAddress,
		Price:             s.price,
		Currency:          s.currency,
		Status:            domain.OrderStatusPending,
		CheckoutURL:       started.CheckoutURL,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		observability.RecordOrderCreated("error")
		return nil, fmt.Errorf("store order: %w", err)
	}

	observability.RecordOrderCreated(string(domain.OrderStatusPending))
	s.logger.Info("checkout started",
		zap.String("order_id", order.ID),
		zap.String("provider_order_id", order.ProviderOrderID),
		zap.String("collection_id", collectionID),
	)
	return order, nil
}

// HandleEvent authenticates a provider notification, records it and applies
// it to the matching order. Applying a redelivered event again is a no-op.
func (s *Service) HandleEvent(ctx context.Context, signature string, body []byte) (*domain.Order, error) {
	ev, err := s.provider.ParseEvent(signature, body)
	if err != nil {
		return nil, err
	}
	observability.RecordCheckoutEvent(string(ev.Kind))

	logger := s.logger.With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.RawType),
		zap.String("provider_order_id", ev.ProviderOrderID),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events != nil {
		err := s.events.Insert(ctx, &domain.CheckoutEvent{
			EventID:         ev.ID,
			ProviderOrderID: ev.ProviderOrderID,
			Kind:            ev.Kind,
			RawType:         ev.RawType,
			ReceivedAt:      s.now().UTC(),
			Payload:         ev.Payload,
		})
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			// Redelivery. Apply is idempotent, and the first delivery may have
			// arrived before the order was stored.
			logger.Debug("duplicate event")
		case err != nil:
			// Audit log is best effort.
			logger.Warn("record checkout event failed", zap.Error(err))
		}
	}

	order, err := s.orderByProvider(ctx, ev.ProviderOrderID)
	if err != nil {
		return nil, err
	}

	if !Apply(order, ev, s.now().UnixMilli()) {
		logger.Debug("event does not change order", zap.String("status", order.Status.String()))
		return order, nil
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	fields := []zap.Field{zap.String("order_id", order.ID), zap.String("status", order.Status.String())}
	if order.Status == domain.OrderStatusFailed {
		logger.Warn("checkout failed", append(fields, zap.String("reason", ev.Reason))...)
	} else {
		logger.Info("order updated", fields...)
	}
	return order, nil
}

// Apply moves order according to ev and reports whether anything changed.
// Terminal states are final. A mint attaches a token id to a pending or
// succeeded order, so a mint delivered before its completion is kept.
func Apply(order *domain.Order, ev *Event, nowMs int64) bool {
	switch ev.Kind {
	case domain.CheckoutEventSucceeded:
		if order.Status != domain.OrderStatusPending {
			return false
		}
		order.Status = domain.OrderStatusSucceeded
	case domain.CheckoutEventFailed:
		if order.Status != domain.OrderStatusPending {
			return false
		}
		order.Status = domain.OrderStatusFailed
		reason := ev.Reason
		if reason == "" {
			reason = "checkout failed"
		}
		order.FailureReason = &reason
	case domain.CheckoutEventMinted:
		if order.Status == domain.OrderStatusFailed || order.TokenID != nil || ev.TokenID == "" {
			return false
		}
		token := ev.TokenID
		order.TokenID = &token
	default:
		return false
	}
	order.UpdatedAt = nowMs
	return true
}

// Order returns an order by id.
func (s *Service) Order(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

// Orders returns the session wallet's orders, newest first.
func (s *Service) Orders(ctx context.Context, sess *domain.Session) ([]*domain.Order, error) {
	if !sess.Connected() {
		return nil, session.ErrNotConnected
	}
	orders, err := s.orders.GetByRecipient(ctx, sess.AccountAddress)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// Events returns the recorded provider events for an order.
// Empty when no audit log is configured.
func (s *Service) Events(ctx context.Context, order *domain.Order) ([]*domain.CheckoutEvent, error) {
	if s.events == nil {
		return nil, nil
	}
	events, err := s.events.GetByProviderOrderID(ctx, order.ProviderOrderID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ProviderStatus asks the provider for the current state of an order.
func (s *Service) ProviderStatus(ctx context.Context, providerOrderID string) (*Status, error) {
	return s.provider.Status(ctx, providerOrderID)
}

func (s *Service) orderByProvider(ctx context.Context, providerOrderID string) (*domain.Order, error) {
	order, err := s.orders.GetByProviderOrderID(ctx, providerOrderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: provider order %s", ErrOrderNotFound, providerOrderID)
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}
