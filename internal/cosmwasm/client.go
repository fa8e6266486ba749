// Package cosmwasm queries CosmWasm smart contract state over the chain REST (LCD) API.
package cosmwasm

import (
	"context"
	"encoding/json"
	"fmt"
)

// QueryClient defines the chain query interface.
type QueryClient interface {
	// QuerySmartContract runs a read-only smart query against a contract
	// and returns the raw JSON result.
	QuerySmartContract(ctx context.Context, contractAddress string, query any) (json.RawMessage, error)
}

// Smart query payloads used by the storefront.
var (
	// ContractInfoQuery asks a cw721 contract for its name and symbol.
	ContractInfoQuery = map[string]any{"contract_info": struct{}{}}

	// RoyaltyInfoQuery probes the cw2981 royalty extension.
	RoyaltyInfoQuery = map[string]any{
		"extension": map[string]any{
			"msg": map[string]any{"royalty_info": struct{}{}},
		},
	}

	// ContractMetadataQuery asks for collection-level metadata.
	ContractMetadataQuery = map[string]any{"contract_metadata": struct{}{}}
)

// QueryKind returns a short label for a query payload: its single top-level key,
// or "custom" when the payload is not a one-key object.
func QueryKind(query any) string {
	m, ok := query.(map[string]any)
	if !ok || len(m) != 1 {
		return "custom"
	}
	for k := range m {
		return k
	}
	return "custom"
}

// QueryError is a contract-level failure reported by the node.
// These are not retried.
type QueryError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("smart query failed (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}
