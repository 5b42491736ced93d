// Package session keeps the recent conversation of each (user, plant) pair.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/store"
)

// MessageLog is the durable, append-only chat log behind the cache.
type MessageLog interface {
	CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error)
	ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error)
}

// Config controls history caching.
type Config struct {
	// Capacity is the maximum number of cached sessions.
	Capacity int
	// TTL evicts sessions idle for longer than this.
	TTL time.Duration
	// Window is the number of most recent messages handed to the model.
	Window int
}

// DefaultConfig returns the default history settings.
func DefaultConfig() Config {
	return Config{
		Capacity: 1000,
		TTL:      30 * time.Minute,
		Window:   10,
	}
}

// History is a keyed store of recent messages. A nil MessageLog keeps history in memory only.
type History struct {
	log    MessageLog
	cache  *lruCache
	window int
}

// NewHistory creates a History.
func NewHistory(log MessageLog, cfg Config) *History {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	return &History{
		log:    log,
		cache:  newLRUCache(cfg.Capacity, cfg.TTL),
		window: cfg.Window,
	}
}

// Key returns the session key of a (user, plant) pair.
func Key(userID, plantID int64) string {
	return fmt.Sprintf("%d:%d", userID, plantID)
}

// Recent returns up to Window messages in chronological order.
func (h *History) Recent(ctx context.Context, userID, plantID int64) ([]llm.Message, error) {
	key := Key(userID, plantID)
	if msgs, ok := h.cache.get(key); ok {
		return msgs, nil
	}
	if h.log == nil {
		return nil, nil
	}

	limit := h.window
	rows, err := h.log.ListChatMessages(ctx, &store.FindChatMessage{
		UserID:  &userID,
		PlantID: &plantID,
		Limit:   &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	// The log returns newest first.
	msgs := make([]llm.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		msgs = append(msgs, llm.Message{Role: string(rows[i].Role), Content: rows[i].Content})
	}
	h.cache.set(key, msgs)

	slog.Debug("chat history loaded", "session", key, "messages", len(msgs))
	return append([]llm.Message(nil), msgs...), nil
}

// Append records messages in order. Only user and assistant roles are accepted.
func (h *History) Append(ctx context.Context, userID, plantID int64, msgs ...llm.Message) error {
	for _, m := range msgs {
		if m.Role != string(store.ChatMessageRoleUser) && m.Role != string(store.ChatMessageRoleAssistant) {
			return fmt.Errorf("unsupported history role: %q", m.Role)
		}
	}

	key := Key(userID, plantID)
	if h.log != nil {
		for _, m := range msgs {
			if _, err := h.log.CreateChatMessage(ctx, &store.ChatMessage{
				UserID:  userID,
				PlantID: plantID,
				Role:    store.ChatMessageRole(m.Role),
				Content: m.Content,
			}); err != nil {
				// The log is the source of truth; force a reload on next read.
				h.cache.remove(key)
				return fmt.Errorf("append chat history: %w", err)
			}
		}
	}

	appendTrimmed := func(existing []llm.Message) []llm.Message {
		merged := append(append([]llm.Message(nil), existing...), msgs...)
		if len(merged) > h.window {
			merged = merged[len(merged)-h.window:]
		}
		return merged
	}
	if !h.cache.update(key, appendTrimmed) && h.log == nil {
		h.cache.set(key, appendTrimmed(nil))
	}
	return nil
}

// Sessions returns the number of cached sessions.
func (h *History) Sessions() int {
	return h.cache.size()
}

// CleanupExpired drops idle sessions from the cache.
func (h *History) CleanupExpired() int {
	return h.cache.cleanupExpired()
}
