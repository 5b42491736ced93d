package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/verdant/ai/internal/strutil"
	"github.com/hrygo/verdant/ai/vector"
)

// Metadata keys written alongside every memory vector.
const (
	MetaContent   = "content"
	MetaUserID    = "user_id"
	MetaPlantID   = "plant_id"
	MetaCreatedAt = "created_at"
)

// Embedder maps text to a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorConfig tunes retrieval.
type VectorConfig struct {
	// TopK is the number of candidates requested from the index.
	TopK int
	// MinSimilarity drops candidates scoring below it.
	MinSimilarity float32
}

// DefaultVectorConfig returns the retrieval defaults.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		TopK:          5,
		MinSimilarity: 0.7,
	}
}

// VectorStore is a Store backed by an embedding service and a vector index.
type VectorStore struct {
	embedder Embedder
	index    vector.Index
	config   VectorConfig
	now      func() time.Time
}

// NewVectorStore creates a vector-backed Store.
func NewVectorStore(embedder Embedder, index vector.Index, cfg VectorConfig) *VectorStore {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultVectorConfig().TopK
	}
	return &VectorStore{
		embedder: embedder,
		index:    index,
		config:   cfg,
		now:      time.Now,
	}
}

// RetrieveContext embeds query and returns the user's snippets above MinSimilarity.
func (s *VectorStore) RetrieveContext(ctx context.Context, userID, plantID int64, query string) ([]Snippet, error) {
	if strutil.IsBlank(query) {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.index.Query(ctx, s.config.TopK, vec, scopeFilter(userID, plantID))
	if err != nil {
		return nil, fmt.Errorf("query memory index: %w", err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		if r.Score < s.config.MinSimilarity {
			continue
		}
		content, _ := r.Metadata[MetaContent].(string)
		if strutil.IsBlank(content) {
			continue
		}
		score := r.Score
		snippets = append(snippets, Snippet{
			ID:       r.ID,
			Content:  content,
			Score:    &score,
			Metadata: r.Metadata,
		})
	}

	slog.Debug("memory retrieved",
		"user_id", userID,
		"plant_id", plantID,
		"candidates", len(results),
		"kept", len(snippets),
	)
	return snippets, nil
}

// Remember embeds content and stores it under a new ID.
func (s *VectorStore) Remember(ctx context.Context, userID, plantID int64, content string, metadata map[string]any) error {
	if strutil.IsBlank(content) {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed content: %w", err)
	}

	now := s.now()
	md := make(map[string]any, len(metadata)+4)
	for k, v := range metadata {
		md[k] = v
	}
	md[MetaContent] = content
	md[MetaUserID] = strconv.FormatInt(userID, 10)
	md[MetaPlantID] = strconv.FormatInt(plantID, 10)
	md[MetaCreatedAt] = now.UTC().Format(time.RFC3339)

	id := NewMemoryID(userID, plantID, now)
	if err := s.index.Upsert(ctx, id, vec, md); err != nil {
		return fmt.Errorf("upsert memory %s: %w", id, err)
	}
	return nil
}

// NewMemoryID returns a unique ID of the form mem:{user}:{plant}:{unixMillis}:{nonce}.
func NewMemoryID(userID, plantID int64, at time.Time) string {
	return fmt.Sprintf("mem:%d:%d:%d:%s", userID, plantID, at.UnixMilli(), shortuuid.New())
}

func scopeFilter(userID, plantID int64) map[string]string {
	return map[string]string{
		MetaUserID:  strconv.FormatInt(userID, 10),
		MetaPlantID: strconv.FormatInt(plantID, 10),
	}
}

var _ Store = (*VectorStore)(nil)
