package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"nft-storefront/internal/domain"
)

//go:embed collections.json
var bundledCollections []byte

//go:embed collections.schema.json
var collectionsSchema []byte

type collectionsFile struct {
	Collections []domain.CollectionDescriptor `json:"collections"`
}

// LoadCollections reads the collection list from path, or the bundled artifact when path is empty.
func LoadCollections(path string) ([]domain.CollectionDescriptor, error) {
	data := bundledCollections
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read collections: %w", err)
		}
	}
	return ParseCollections(data)
}

// ParseCollections validates data against the collections schema and decodes it.
// Collection ids must be unique.
func ParseCollections(data []byte) ([]domain.CollectionDescriptor, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(collectionsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate collections: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid collections: %s", strings.Join(msgs, "; "))
	}

	var file collectionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}

	seen := make(map[string]bool, len(file.Collections))
	for _, c := range file.Collections {
		if seen[c.ID] {
			return nil, fmt.Errorf("invalid collections: duplicate id %q", c.ID)
		}
		seen[c.ID] = true
	}

	return file.Collections, nil
}
