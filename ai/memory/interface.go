// Package memory provides long-term conversational memory for plant personas.
//
// Memories are scoped to a (user, plant) pair. The vector-backed store keeps
// every remembered message as a new entry; nothing is ever overwritten.
package memory

import "context"

// Store is the long-term memory capability consumed by the chat orchestrator.
type Store interface {
	// RetrieveContext returns snippets relevant to query, best match first.
	// A blank query yields an empty result.
	RetrieveContext(ctx context.Context, userID, plantID int64, query string) ([]Snippet, error)

	// Remember persists content for later retrieval. Blank content is ignored.
	Remember(ctx context.Context, userID, plantID int64, content string, metadata map[string]any) error
}

// Snippet is a remembered piece of conversation.
type Snippet struct {
	Metadata map[string]any `json:"metadata,omitempty"`
	// Score is the similarity to the query; nil when the backend does not score.
	Score   *float32 `json:"score,omitempty"`
	ID      string   `json:"id"`
	Content string   `json:"content"`
}

// Noop is the Store used when no vector backend is configured.
type Noop struct{}

// NewNoop creates a Noop store.
func NewNoop() *Noop {
	return &Noop{}
}

// RetrieveContext returns nothing.
func (*Noop) RetrieveContext(context.Context, int64, int64, string) ([]Snippet, error) {
	return nil, nil
}

// Remember does nothing.
func (*Noop) Remember(context.Context, int64, int64, string, map[string]any) error {
	return nil
}

var _ Store = (*Noop)(nil)
