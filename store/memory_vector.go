package store

import (
	"context"

	"github.com/pkg/errors"
)

// MemoryVector is a long-term memory entry with its embedding.
// Metadata is stored as JSON; its string values can be used as search filters.
type MemoryVector struct {
	ID        string
	Embedding []float32
	Metadata  map[string]any
	CreatedTs int64
}

// MemoryVectorWithScore represents a vector search result with similarity score.
type MemoryVectorWithScore struct {
	MemoryVector *MemoryVector
	Score        float32 // Similarity score (0-1, higher is more similar)
}

// MemoryVectorSearchOptions represents the options for memory vector search.
type MemoryVectorSearchOptions struct {
	Vector []float32
	// Filter requires metadata[key] == value for every entry.
	Filter map[string]string
	Limit  int
}

// Validate validates the MemoryVectorSearchOptions.
func (o *MemoryVectorSearchOptions) Validate() error {
	if len(o.Vector) == 0 {
		return errors.Errorf("vector cannot be empty")
	}
	if o.Limit < 0 {
		return errors.Errorf("limit cannot be negative: %d", o.Limit)
	}
	if o.Limit == 0 {
		o.Limit = 10 // Default limit
	}
	if o.Limit > 1000 {
		return errors.Errorf("limit too large (max 1000): %d", o.Limit)
	}
	for k := range o.Filter {
		if !isMetadataKey(k) {
			return errors.Errorf("invalid filter key: %q", k)
		}
	}
	return nil
}

// isMetadataKey reports whether k is a plain identifier safe to use as a JSON key filter.
func isMetadataKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

// UpsertMemoryVector appends a memory vector. Entries are never replaced;
// a duplicate ID is reported by the driver as an error.
func (s *Store) UpsertMemoryVector(ctx context.Context, upsert *MemoryVector) error {
	if upsert.ID == "" {
		return errors.New("memory vector id is required")
	}
	if len(upsert.Embedding) == 0 {
		return errors.New("memory vector embedding is required")
	}
	return s.driver.UpsertMemoryVector(ctx, upsert)
}

// MemoryVectorSearch performs vector similarity search on memory vectors.
func (s *Store) MemoryVectorSearch(ctx context.Context, opts *MemoryVectorSearchOptions) ([]*MemoryVectorWithScore, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.driver.MemoryVectorSearch(ctx, opts)
}
