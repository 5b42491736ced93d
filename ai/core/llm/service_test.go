package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_RequiresProvider(t *testing.T) {
	_, err := NewService(&Config{Model: "x"})
	assert.Error(t, err)

	_, err = NewService(nil)
	assert.Error(t, err)
}

func TestNewService_Providers(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantType string
	}{
		{"deepseek defaults", Config{Provider: "deepseek", APIKey: "k"}, "openai"},
		{"openai custom base", Config{Provider: "openai", APIKey: "k", BaseURL: "https://api.openai.com/v1"}, "openai"},
		{"ollama without key", Config{Provider: "ollama"}, "openai"},
		{"generic provider", Config{Provider: "my-gateway", BaseURL: "http://gw.local/v1"}, "openai"},
		{"anthropic", Config{Provider: "anthropic", APIKey: "k", Model: "claude-sonnet-4-5"}, "anthropic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			svc, err := NewService(&cfg)
			require.NoError(t, err)
			require.NotNil(t, svc)

			switch tt.wantType {
			case "anthropic":
				_, ok := svc.(*anthropicService)
				assert.True(t, ok)
			default:
				_, ok := svc.(*service)
				assert.True(t, ok)
			}
		})
	}
}

func TestNewService_AppliesDefaults(t *testing.T) {
	cfg := &Config{Provider: "openai", APIKey: "k"}
	svc, err := NewService(cfg)
	require.NoError(t, err)

	s := svc.(*service)
	assert.Equal(t, 2048, s.maxTokens)
	assert.InDelta(t, 0.7, s.temperature, 0.0001)
	assert.Equal(t, int64(120), int64(s.timeout.Seconds()))
	assert.Nil(t, s.limiter)
}

func TestNewService_RateLimiter(t *testing.T) {
	svc, err := NewService(&Config{Provider: "openai", APIKey: "k", RequestsPerSecond: 0.5})
	require.NoError(t, err)
	s := svc.(*service)
	require.NotNil(t, s.limiter)
	assert.Equal(t, 1, s.limiter.Burst())
}

func TestService_Chat(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "물을 조금만 주세요"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	svc, err := NewService(&Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	require.NoError(t, err)

	content, stats, err := svc.Chat(context.Background(), FormatMessages("sys", "hello", []Message{AssistantMessage("prev")}))
	require.NoError(t, err)
	assert.Equal(t, "물을 조금만 주세요", content)
	require.NotNil(t, stats)
	assert.Equal(t, 17, stats.TotalTokens)

	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[2].(map[string]any)["role"])
}

func TestService_ChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	svc, err := NewService(&Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, _, err = svc.Chat(context.Background(), []Message{UserMessage("hi")})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestService_ChatUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc, err := NewService(&Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, _, err = svc.Chat(context.Background(), []Message{UserMessage("hi")})
	assert.Error(t, err)
}

func TestFormatMessages(t *testing.T) {
	msgs := FormatMessages("", "now", nil)
	require.Len(t, msgs, 1)
	assert.Equal(t, UserMessage("now"), msgs[0])
}

func TestSplitAnthropicMessages(t *testing.T) {
	system, turns := splitAnthropicMessages([]Message{
		SystemPrompt("a"),
		SystemPrompt("b"),
		UserMessage("u1"),
		AssistantMessage("a1"),
		UserMessage("u2"),
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Len(t, turns, 3)
}
