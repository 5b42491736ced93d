package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/verdant/ai/chat"
	"github.com/hrygo/verdant/internal/profile"
	"github.com/hrygo/verdant/store"
	"github.com/hrygo/verdant/store/db"
)

func newFakeCompletionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "cmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "`+reply+`"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, llmURL string) *Server {
	t.Helper()
	dir := t.TempDir()
	p := &profile.Profile{
		Mode:                    "dev",
		Data:                    dir,
		Driver:                  "sqlite",
		DSN:                     filepath.Join(dir, "verdant_test.db"),
		LLMProvider:             "openai",
		LLMAPIKey:               "sk-test",
		LLMBaseURL:              llmURL,
		LLMModel:                "gpt-4o-mini",
		LLMTimeout:              5,
		AuxiliaryTimeoutSeconds: 5,
		HistoryCapacity:         10,
		HistoryWindow:           10,
		MemoryBackend:           profile.MemoryBackendNone,
	}
	require.NoError(t, p.Validate())

	driver, err := db.NewDBDriver(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	s, err := NewServer(context.Background(), p, st)
	require.NoError(t, err)
	return s
}

func TestNewChat_RequiresLLM(t *testing.T) {
	_, err := NewChat(&profile.Profile{LLMProvider: "openai"}, nil, nil)
	assert.Error(t, err)
}

func TestNewRouterConfig_ClassifierTimeoutFollowsProfile(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    time.Duration
	}{
		{name: "configured", seconds: 3, want: 3 * time.Second},
		{name: "unset", seconds: 0, want: chat.DefaultAuxiliaryTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newRouterConfig(&profile.Profile{AuxiliaryTimeoutSeconds: tt.seconds}, nil)
			assert.Equal(t, tt.want, cfg.ClassifierTimeout)
			assert.Equal(t, tt.want, auxiliaryTimeout(&profile.Profile{AuxiliaryTimeoutSeconds: tt.seconds}))
		})
	}
}

func TestServer_TurnIsPersistedAndMeasured(t *testing.T) {
	srv := newFakeCompletionServer(t, "오늘 햇살이 참 좋아")
	s := newTestServer(t, srv.URL)
	ctx := context.Background()

	_, err := s.Store.UpsertPersona(ctx, &store.UpsertPersona{
		UserID:    1,
		PlantID:   2,
		PlantName: "초록이",
	})
	require.NoError(t, err)

	out, err := s.Chat.Orchestrator.HandleTurn(ctx, 1, 2, "안녕 초록아")
	require.NoError(t, err)
	assert.Equal(t, "오늘 햇살이 참 좋아", out.Message)
	assert.Equal(t, "BOT", out.Direction)

	userID, plantID := int64(1), int64(2)
	logged, err := s.Store.ListChatMessages(ctx, &store.FindChatMessage{UserID: &userID, PlantID: &plantID})
	require.NoError(t, err)
	assert.Len(t, logged, 2)
	assert.Equal(t, 1, s.Chat.History.Sessions())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `verdant_chat_turns_total{agent="default",status="success"} 1`)
	assert.Contains(t, body, `verdant_chat_route_decisions_total{agent="default",method="fallback"} 1`)
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
