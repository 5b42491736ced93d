// Package chromem implements vector.Index on the embedded chromem-go database.
package chromem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hrygo/verdant/ai/vector"
)

// DefaultCollection is the collection memory vectors live in.
const DefaultCollection = "long_term_memory"

// Index wraps a chromem collection. Per-user isolation is done with metadata
// filters rather than per-user collections so one index serves every tenant.
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
}

// New creates an in-memory index.
func New() (*Index, error) {
	return newIndex(chromem.NewDB())
}

// NewPersistent creates an index persisted under dir.
func NewPersistent(dir string) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, true)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	return newIndex(db)
}

func newIndex(db *chromem.DB) (*Index, error) {
	// No embedding func: vectors are always supplied by the caller.
	col, err := db.GetOrCreateCollection(DefaultCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{db: db, col: col}, nil
}

// Upsert stores a document whose metadata values are flattened to strings.
func (i *Index) Upsert(ctx context.Context, id string, vec []float32, metadata map[string]any) error {
	doc := chromem.Document{
		ID:        id,
		Embedding: vec,
		Metadata:  flattenMetadata(metadata),
	}
	if content, ok := metadata["content"].(string); ok {
		doc.Content = content
	}
	if err := i.col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

// Query runs a filtered similarity search.
func (i *Index) Query(ctx context.Context, topK int, vec []float32, filter map[string]string) ([]vector.Result, error) {
	// chromem rejects nResults larger than the collection.
	n := topK
	if count := i.col.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	// Filtered queries can still come up short; step down until chromem accepts n.
	var hits []chromem.Result
	for ; n >= 1; n-- {
		var err error
		hits, err = i.col.QueryEmbedding(ctx, vec, n, filter, nil)
		if err == nil {
			break
		}
		if !isInsufficientDocsError(err) {
			return nil, fmt.Errorf("chromem query: %w", err)
		}
	}

	results := make([]vector.Result, 0, len(hits))
	for _, h := range hits {
		md := make(map[string]any, len(h.Metadata)+1)
		for k, v := range h.Metadata {
			md[k] = v
		}
		if _, ok := md["content"]; !ok && h.Content != "" {
			md["content"] = h.Content
		}
		results = append(results, vector.Result{ID: h.ID, Score: h.Similarity, Metadata: md})
	}
	slog.Debug("chromem query", "requested", topK, "returned", len(results))
	return results, nil
}

// Count returns the number of stored documents.
func (i *Index) Count() int {
	return i.col.Count()
}

func isInsufficientDocsError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}

func flattenMetadata(metadata map[string]any) map[string]string {
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			continue
		default:
			if b, err := json.Marshal(val); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}

var _ vector.Index = (*Index)(nil)
