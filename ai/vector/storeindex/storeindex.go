// Package storeindex implements vector.Index on the relational store (pgvector).
package storeindex

import (
	"context"
	"fmt"

	"github.com/hrygo/verdant/ai/vector"
	"github.com/hrygo/verdant/store"
)

// MemoryVectorStore is the subset of store.Store the index needs.
type MemoryVectorStore interface {
	UpsertMemoryVector(ctx context.Context, upsert *store.MemoryVector) error
	MemoryVectorSearch(ctx context.Context, opts *store.MemoryVectorSearchOptions) ([]*store.MemoryVectorWithScore, error)
}

// Index adapts the store's memory_vector table to vector.Index.
type Index struct {
	store MemoryVectorStore
}

// New creates an Index over st.
func New(st MemoryVectorStore) *Index {
	return &Index{store: st}
}

// Upsert stores vec under id.
func (i *Index) Upsert(ctx context.Context, id string, vec []float32, metadata map[string]any) error {
	if err := i.store.UpsertMemoryVector(ctx, &store.MemoryVector{
		ID:        id,
		Embedding: vec,
		Metadata:  metadata,
	}); err != nil {
		return fmt.Errorf("upsert memory vector: %w", err)
	}
	return nil
}

// Query returns the topK most similar vectors matching filter.
func (i *Index) Query(ctx context.Context, topK int, vec []float32, filter map[string]string) ([]vector.Result, error) {
	if topK <= 0 {
		return nil, nil
	}
	hits, err := i.store.MemoryVectorSearch(ctx, &store.MemoryVectorSearchOptions{
		Vector: vec,
		Filter: filter,
		Limit:  topK,
	})
	if err != nil {
		return nil, fmt.Errorf("search memory vectors: %w", err)
	}

	results := make([]vector.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, vector.Result{
			ID:       h.MemoryVector.ID,
			Score:    h.Score,
			Metadata: h.MemoryVector.Metadata,
		})
	}
	return results, nil
}

var _ vector.Index = (*Index)(nil)
