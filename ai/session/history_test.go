package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/store"
)

type fakeLog struct {
	mu        sync.Mutex
	rows      []*store.ChatMessage
	listCalls int
	createErr error
}

func (f *fakeLog) CreateChatMessage(_ context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	create.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, create)
	return create, nil
}

func (f *fakeLog) ListChatMessages(_ context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	var out []*store.ChatMessage
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.UserID != *find.UserID || r.PlantID != *find.PlantID {
			continue
		}
		out = append(out, r)
		if find.Limit != nil && len(out) == *find.Limit {
			break
		}
	}
	return out, nil
}

func TestHistory_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(nil, Config{Window: 3})

	msgs, err := h.Recent(ctx, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, h.Append(ctx, 1, 1, llm.UserMessage("u1"), llm.AssistantMessage("a1")))
	require.NoError(t, h.Append(ctx, 1, 1, llm.UserMessage("u2"), llm.AssistantMessage("a2")))

	msgs, err = h.Recent(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{
		llm.AssistantMessage("a1"),
		llm.UserMessage("u2"),
		llm.AssistantMessage("a2"),
	}, msgs)

	other, err := h.Recent(ctx, 1, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestHistory_LoadsFromLogOnMiss(t *testing.T) {
	ctx := context.Background()
	log := &fakeLog{}
	for _, r := range []struct {
		role    store.ChatMessageRole
		content string
	}{
		{store.ChatMessageRoleUser, "첫 메시지"},
		{store.ChatMessageRoleAssistant, "첫 답장"},
		{store.ChatMessageRoleUser, "두번째"},
	} {
		_, err := log.CreateChatMessage(ctx, &store.ChatMessage{UserID: 5, PlantID: 6, Role: r.role, Content: r.content})
		require.NoError(t, err)
	}

	h := NewHistory(log, Config{Window: 2})
	msgs, err := h.Recent(ctx, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{llm.AssistantMessage("첫 답장"), llm.UserMessage("두번째")}, msgs)

	// Second read is served from cache.
	_, err = h.Recent(ctx, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, log.listCalls)
	assert.Equal(t, 1, h.Sessions())
}

func TestHistory_AppendPersistsAndUpdatesCache(t *testing.T) {
	ctx := context.Background()
	log := &fakeLog{}
	h := NewHistory(log, Config{Window: 4})

	_, err := h.Recent(ctx, 1, 1)
	require.NoError(t, err)

	require.NoError(t, h.Append(ctx, 1, 1, llm.UserMessage("물 줬어"), llm.AssistantMessage("고마워!")))
	assert.Len(t, log.rows, 2)

	msgs, err := h.Recent(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{llm.UserMessage("물 줬어"), llm.AssistantMessage("고마워!")}, msgs)
	assert.Equal(t, 1, log.listCalls)
}

func TestHistory_AppendRejectsSystemRole(t *testing.T) {
	h := NewHistory(nil, DefaultConfig())
	assert.Error(t, h.Append(context.Background(), 1, 1, llm.SystemPrompt("x")))
}

func TestHistory_AppendLogFailureInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	log := &fakeLog{}
	h := NewHistory(log, DefaultConfig())
	_, err := h.Recent(ctx, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 1, h.Sessions())

	log.createErr = errors.New("disk full")
	assert.Error(t, h.Append(ctx, 1, 1, llm.UserMessage("hi")))
	assert.Equal(t, 0, h.Sessions())
}

func TestHistory_RecentReturnsCopy(t *testing.T) {
	ctx := context.Background()
	h := NewHistory(nil, DefaultConfig())
	require.NoError(t, h.Append(ctx, 1, 1, llm.UserMessage("original")))

	msgs, err := h.Recent(ctx, 1, 1)
	require.NoError(t, err)
	msgs[0].Content = "mutated"

	again, err := h.Recent(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}

func TestLRUCache_EvictionAndTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := newLRUCache(2, time.Minute)
	c.now = func() time.Time { return now }

	c.set("a", []llm.Message{llm.UserMessage("a")})
	c.set("b", []llm.Message{llm.UserMessage("b")})
	_, ok := c.get("a") // a becomes most recent
	require.True(t, ok)

	c.set("c", []llm.Message{llm.UserMessage("c")})
	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	assert.Equal(t, 2, c.size())

	now = now.Add(2 * time.Minute)
	_, ok = c.get("a")
	assert.False(t, ok, "expired entry should not be returned")

	c.set("d", nil)
	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, c.cleanupExpired())
	assert.Equal(t, 0, c.size())
}
