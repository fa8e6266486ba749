package domain

import "encoding/json"

// CollectionDescriptor identifies one configured NFT collection.
// Loaded once from the bundled collections artifact and never mutated.
type CollectionDescriptor struct {
	ID              string `json:"id"`
	ContractAddress string `json:"contractAddress"`
}

// EnrichedCollection is a descriptor plus whatever contract state could be read from chain.
// A collection whose contract_info query failed carries only the descriptor fields.
type EnrichedCollection struct {
	CollectionDescriptor

	ContractInfo   json.RawMessage `json:"contractInfo"`   // nil if contract_info failed
	HasRoyaltyInfo bool            `json:"hasRoyaltyInfo"` // royalty extension answered
	Metadata       json.RawMessage `json:"metadata"`       // contract_metadata, else contract_info
}

// MarshalJSON encodes a degraded collection exactly like its descriptor.
func (c EnrichedCollection) MarshalJSON() ([]byte, error) {
	if !c.Enriched() {
		return json.Marshal(c.CollectionDescriptor)
	}
	type enriched EnrichedCollection
	return json.Marshal(enriched(c))
}

// Plain wraps a descriptor without any enrichment.
func Plain(d CollectionDescriptor) EnrichedCollection {
	return EnrichedCollection{CollectionDescriptor: d}
}

// Enriched reports whether the contract_info query succeeded for this collection.
func (c EnrichedCollection) Enriched() bool {
	return c.ContractInfo != nil
}

// CollectionMetadata is the display subset of contract metadata.
// Fields are optional; contracts disagree on what they expose.
type CollectionMetadata struct {
	Name        string `json:"name,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// DisplayMetadata decodes the display fields from Metadata.
// Returns the zero value when metadata is absent or not an object.
func (c EnrichedCollection) DisplayMetadata() CollectionMetadata {
	var m CollectionMetadata
	if len(c.Metadata) == 0 {
		return m
	}
	_ = json.Unmarshal(c.Metadata, &m)
	return m
}
