// Package catalog builds the storefront collection list from on-chain contract state.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"nft-storefront/internal/cosmwasm"
	"nft-storefront/internal/domain"
	"nft-storefront/internal/observability"
)

// Enrichment outcomes, used as metric labels.
const (
	OutcomeFull     = "full"     // all three queries answered
	OutcomePartial  = "partial"  // contract_info answered, royalty or metadata did not
	OutcomeDegraded = "degraded" // contract_info failed, descriptor returned as is
)

// Enricher reads contract state for one collection.
type Enricher struct {
	client cosmwasm.QueryClient
	logger *zap.Logger
}

// NewEnricher creates an Enricher. A nil logger disables logging.
func NewEnricher(client cosmwasm.QueryClient, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{client: client, logger: logger}
}

// Enrich never fails: every query failure degrades the result instead.
// Only a failed contract_info query discards enrichment entirely.
func (e *Enricher) Enrich(ctx context.Context, d domain.CollectionDescriptor) (out domain.EnrichedCollection) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("enrichment panicked",
				zap.String("collection_id", d.ID),
				zap.String("contract", d.ContractAddress),
				zap.Any("panic", r),
			)
			observability.RecordEnrichment(OutcomeDegraded)
			out = domain.Plain(d)
		}
	}()

	info, err := e.fetch(ctx, d.ContractAddress, cosmwasm.ContractInfoQuery)
	if err != nil {
		e.logger.Error("fetch collection",
			zap.String("collection_id", d.ID),
			zap.String("contract", d.ContractAddress),
			zap.Error(err),
		)
		observability.RecordEnrichment(OutcomeDegraded)
		return domain.Plain(d)
	}

	out = domain.EnrichedCollection{
		CollectionDescriptor: d,
		ContractInfo:         info,
		Metadata:             info,
	}

	if _, err := e.query(ctx, d.ContractAddress, cosmwasm.RoyaltyInfoQuery); err == nil {
		out.HasRoyaltyInfo = true
	} else {
		e.logger.Debug("royalty extension unavailable",
			zap.String("collection_id", d.ID),
			zap.Error(err),
		)
	}

	metadata, err := e.query(ctx, d.ContractAddress, cosmwasm.ContractMetadataQuery)
	if err == nil {
		out.Metadata = metadata
	} else {
		e.logger.Debug("contract metadata unavailable, using contract_info",
			zap.String("collection_id", d.ID),
			zap.Error(err),
		)
	}

	if out.HasRoyaltyInfo && err == nil {
		observability.RecordEnrichment(OutcomeFull)
	} else {
		observability.RecordEnrichment(OutcomePartial)
	}
	return out
}

var jsonNull = json.RawMessage("null")

// errEmptyResult marks a query that answered with no value.
var errEmptyResult = errors.New("empty query result")

// fetch runs a smart query and keeps whatever value the contract answered,
// null included.
func (e *Enricher) fetch(ctx context.Context, contract string, q any) (json.RawMessage, error) {
	result, err := e.client.QuerySmartContract(ctx, contract, q)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 {
		return jsonNull, nil
	}
	return trimmed, nil
}

// query is fetch for optional queries: an empty or null result counts as absent.
func (e *Enricher) query(ctx context.Context, contract string, q any) (json.RawMessage, error) {
	result, err := e.fetch(ctx, contract, q)
	if err != nil {
		return nil, err
	}
	if bytes.Equal(result, jsonNull) {
		return nil, errEmptyResult
	}
	return result, nil
}
