package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nft-storefront/internal/cosmwasm"
	"nft-storefront/internal/domain"
	"nft-storefront/internal/observability"
)

// ErrAggregationFailed wraps any failure outside the per-collection boundary.
var ErrAggregationFailed = errors.New("aggregation failed")

// RefreshMessage is the user-facing notice for a failed aggregation.
const RefreshMessage = "Failed to load collections. Pull to refresh."

// Aggregator enriches the configured collections concurrently.
// It is stateless per call; concurrent calls are independent runs.
type Aggregator struct {
	collections []domain.CollectionDescriptor
	client      cosmwasm.QueryClient
	concurrency int
	logger      *zap.Logger
}

// Options for creating Aggregator.
type Options struct {
	// Collections is the static descriptor list. Read-only.
	Collections []domain.CollectionDescriptor
	// Client may be nil while the chain connection is not ready.
	Client cosmwasm.QueryClient
	// Concurrency caps in-flight enrichments. 0 means one goroutine per collection.
	Concurrency int
	Logger      *zap.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		collections: opts.Collections,
		client:      opts.Client,
		concurrency: opts.Concurrency,
		logger:      logger,
	}
}

// Collections returns the static descriptor list.
func (a *Aggregator) Collections() []domain.CollectionDescriptor {
	return a.collections
}

// Aggregate returns one entry per configured collection, in configuration order.
// Without a chain client or a connected session it returns an empty list and issues no queries.
func (a *Aggregator) Aggregate(ctx context.Context, session *domain.Session) ([]domain.EnrichedCollection, error) {
	if a.client == nil || !session.Connected() {
		return []domain.EnrichedCollection{}, nil
	}

	start := time.Now()
	result, err := a.run(ctx)
	if err != nil {
		observability.RecordAggregation("error", time.Since(start).Seconds())
		a.logger.Error("load collections", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAggregationFailed, err)
	}

	observability.RecordAggregation("success", time.Since(start).Seconds())
	a.logger.Debug("collections loaded",
		zap.Int("count", len(result)),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

func (a *Aggregator) run(ctx context.Context) ([]domain.EnrichedCollection, error) {
	enricher := NewEnricher(a.client, a.logger)
	result := make([]domain.EnrichedCollection, len(a.collections))

	g, gctx := errgroup.WithContext(ctx)
	if a.concurrency > 0 {
		g.SetLimit(a.concurrency)
	}

	for i, d := range a.collections {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result[i] = enricher.Enrich(gctx, d)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
