package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "deepseek", p.LLMProvider)
	assert.Equal(t, "https://api.deepseek.com", p.LLMBaseURL)
	assert.Equal(t, "deepseek-chat", p.LLMModel)
	assert.Equal(t, 120, p.LLMTimeout)
	assert.False(t, p.IsAIEnabled())

	assert.False(t, p.IntentEnabled)
	assert.False(t, p.RiskScorerEnabled)
	assert.False(t, p.ModerationEnabled)

	assert.Equal(t, "BAAI/bge-m3", p.EmbeddingModel)
	assert.Equal(t, 1024, p.EmbeddingDimensions)
	assert.Equal(t, MemoryBackendNone, p.MemoryBackend)
	assert.Equal(t, 5, p.MemoryTopK)
	assert.InDelta(t, 0.7, p.MemoryMinSimilarity, 0.0001)
	assert.Equal(t, 10, p.AuxiliaryTimeoutSeconds)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("VERDANT_AI_LLM_PROVIDER", "anthropic")
	t.Setenv("VERDANT_AI_LLM_API_KEY", "sk-test")
	t.Setenv("VERDANT_AI_LLM_RPS", "2.5")
	t.Setenv("VERDANT_AI_INTENT_ENABLED", "true")
	t.Setenv("VERDANT_MEMORY_BACKEND", "Chromem")
	t.Setenv("VERDANT_MEMORY_MIN_SIMILARITY", "0.65")
	t.Setenv("VERDANT_HISTORY_WINDOW", "not-a-number")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "anthropic", p.LLMProvider)
	assert.Equal(t, "claude-sonnet-4-5", p.LLMModel)
	assert.True(t, p.IsAIEnabled())
	assert.InDelta(t, 2.5, p.LLMRequestsPerSecond, 0.0001)
	assert.True(t, p.IntentEnabled)
	assert.Equal(t, MemoryBackendChromem, p.MemoryBackend)
	assert.InDelta(t, 0.65, p.MemoryMinSimilarity, 0.0001)
	assert.Equal(t, 10, p.HistoryWindow)
}

func TestFromEnv_UnknownProvider(t *testing.T) {
	t.Setenv("VERDANT_AI_LLM_PROVIDER", "nope")
	p := &Profile{}
	p.FromEnv()
	assert.Equal(t, "deepseek", p.LLMProvider)
}

func TestAuxiliaryLLM(t *testing.T) {
	p := &Profile{LLMProvider: "deepseek", LLMAPIKey: "main", LLMBaseURL: "https://api.deepseek.com", LLMModel: "deepseek-chat"}

	provider, key, base, model := p.AuxiliaryLLM("", "", "", "")
	assert.Equal(t, []string{"deepseek", "main", "https://api.deepseek.com", "deepseek-chat"}, []string{provider, key, base, model})

	provider, key, base, model = p.AuxiliaryLLM("siliconflow", "sf", "", "Qwen/Qwen2.5-7B-Instruct")
	assert.Equal(t, []string{"siliconflow", "sf", "https://api.siliconflow.cn/v1", "Qwen/Qwen2.5-7B-Instruct"}, []string{provider, key, base, model})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		profile Profile
		wantErr bool
		check   func(t *testing.T, p *Profile)
	}{
		{
			name:    "sqlite gets default dsn",
			profile: Profile{Mode: "dev", Data: dir, Driver: "sqlite"},
			check: func(t *testing.T, p *Profile) {
				assert.Contains(t, p.DSN, "verdant_dev.db")
				assert.Equal(t, MemoryBackendNone, p.MemoryBackend)
			},
		},
		{
			name:    "unknown mode becomes demo",
			profile: Profile{Mode: "staging", Data: dir, Driver: "sqlite"},
			check: func(t *testing.T, p *Profile) {
				assert.Equal(t, "demo", p.Mode)
			},
		},
		{name: "postgres requires dsn", profile: Profile{Mode: "dev", Data: dir, Driver: "postgres"}, wantErr: true},
		{name: "unknown driver", profile: Profile{Mode: "dev", Data: dir, Driver: "mysql"}, wantErr: true},
		{name: "missing data dir", profile: Profile{Mode: "dev", Data: dir + "/missing", Driver: "sqlite"}, wantErr: true},
		{name: "pgvector memory on sqlite", profile: Profile{Mode: "dev", Data: dir, Driver: "sqlite", MemoryBackend: MemoryBackendPostgres}, wantErr: true},
		{name: "unknown memory backend", profile: Profile{Mode: "dev", Data: dir, Driver: "sqlite", MemoryBackend: "redis"}, wantErr: true},
		{name: "similarity out of range", profile: Profile{Mode: "dev", Data: dir, Driver: "sqlite", MemoryMinSimilarity: 1.5}, wantErr: true},
		{name: "postgres memory", profile: Profile{Mode: "dev", Data: dir, Driver: "postgres", DSN: "postgres://localhost/verdant", MemoryBackend: MemoryBackendPostgres}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.profile
			err := p.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, &p)
			}
		})
	}
}
