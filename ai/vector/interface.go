// Package vector defines the similarity-search index used by long-term memory.
package vector

import "context"

// Index is a nearest-neighbour store over embedded text.
type Index interface {
	// Upsert stores vec under id with its metadata.
	Upsert(ctx context.Context, id string, vec []float32, metadata map[string]any) error

	// Query returns up to topK entries matching every filter key, best match first.
	Query(ctx context.Context, topK int, vec []float32, filter map[string]string) ([]Result, error)
}

// Result represents a vector search hit.
type Result struct {
	Metadata map[string]any `json:"metadata"`
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
}
