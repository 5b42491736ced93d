package server

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hrygo/verdant/ai/agents"
	"github.com/hrygo/verdant/ai/chat"
	"github.com/hrygo/verdant/ai/core/embedding"
	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/memory"
	"github.com/hrygo/verdant/ai/metrics"
	"github.com/hrygo/verdant/ai/routing"
	"github.com/hrygo/verdant/ai/safety"
	"github.com/hrygo/verdant/ai/session"
	"github.com/hrygo/verdant/ai/vector"
	"github.com/hrygo/verdant/ai/vector/chromem"
	"github.com/hrygo/verdant/ai/vector/storeindex"
	"github.com/hrygo/verdant/internal/profile"
	"github.com/hrygo/verdant/store"
)

// ChatComponents is the assembled chat-turn core.
type ChatComponents struct {
	Orchestrator *chat.Orchestrator
	History      *session.History
}

// NewChat assembles the orchestrator and its collaborators from the profile.
// Optional subsystems that are disabled or misconfigured fall back to their
// local defaults; only the primary LLM is required.
func NewChat(p *profile.Profile, st *store.Store, exporter *metrics.PrometheusExporter) (*ChatComponents, error) {
	if !p.IsAIEnabled() {
		return nil, fmt.Errorf("LLM API key is required for provider %q", p.LLMProvider)
	}

	primary, err := llm.NewService(&llm.Config{
		Provider:          p.LLMProvider,
		Model:             p.LLMModel,
		APIKey:            p.LLMAPIKey,
		BaseURL:           p.LLMBaseURL,
		Timeout:           p.LLMTimeout,
		RequestsPerSecond: p.LLMRequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm service: %w", err)
	}

	history := session.NewHistory(st, session.Config{
		Capacity: p.HistoryCapacity,
		TTL:      time.Duration(p.HistoryTTLSeconds) * time.Second,
		Window:   p.HistoryWindow,
	})

	deps := agents.Deps{
		LLM:      primary,
		Profiles: st,
		History:  history,
		Usage:    exporter,
	}
	routerCfg := newRouterConfig(p, exporter)
	if p.IntentEnabled {
		routerCfg.Classifier = auxiliaryLLM(p, "intent", p.IntentProvider, p.IntentAPIKey, p.IntentBaseURL, p.IntentModel)
	}
	router, err := routing.NewRouter(map[routing.Intent]agents.Agent{
		routing.IntentDefault:    agents.NewDefaultAgent(deps),
		routing.IntentReflection: agents.NewReflectionAgent(deps),
		routing.IntentAction:     agents.NewActionAgent(deps),
	}, routerCfg)
	if err != nil {
		return nil, err
	}

	auxTimeout := auxiliaryTimeout(p)
	// The scorer gets half the budget so the keyword scan always has time left.
	assessorOpts := []safety.AssessorOption{safety.WithScorerTimeout(auxTimeout / 2)}
	if p.RiskScorerEnabled {
		if scorer := auxiliaryLLM(p, "risk", p.RiskScorerProvider, p.RiskScorerAPIKey, p.RiskScorerBaseURL, p.RiskScorerModel); scorer != nil {
			assessorOpts = append(assessorOpts, safety.WithScorer(scorer))
		}
	}

	cfg := chat.Config{
		Router:           router,
		Risk:             safety.NewAssessor(assessorOpts...),
		Memory:           newMemoryStore(p, st),
		Redactor:         safety.NewRedactor(),
		History:          history,
		Metrics:          exporter,
		AuxiliaryTimeout: auxTimeout,
	}
	if p.ModerationEnabled {
		if svc := auxiliaryLLM(p, "moderation", p.ModerationProvider, p.ModerationAPIKey, p.ModerationBaseURL, p.ModerationModel); svc != nil {
			cfg.Moderator = safety.NewModerator(svc, nil)
		}
	}

	return &ChatComponents{
		Orchestrator: chat.NewOrchestrator(cfg),
		History:      history,
	}, nil
}

// auxiliaryTimeout is the per-call budget shared by every auxiliary subsystem.
func auxiliaryTimeout(p *profile.Profile) time.Duration {
	if p.AuxiliaryTimeoutSeconds <= 0 {
		return chat.DefaultAuxiliaryTimeout
	}
	return time.Duration(p.AuxiliaryTimeoutSeconds) * time.Second
}

func newRouterConfig(p *profile.Profile, exporter *metrics.PrometheusExporter) *routing.Config {
	cfg := routing.DefaultConfig()
	cfg.Recorder = exporter
	cfg.ClassifierTimeout = auxiliaryTimeout(p)
	return cfg
}

// auxiliaryLLM returns nil when the service cannot be created; callers treat
// that as the subsystem being unconfigured.
func auxiliaryLLM(p *profile.Profile, name, provider, apiKey, baseURL, model string) llm.Service {
	provider, apiKey, baseURL, model = p.AuxiliaryLLM(provider, apiKey, baseURL, model)
	svc, err := llm.NewService(&llm.Config{
		Provider:          provider,
		Model:             model,
		APIKey:            apiKey,
		BaseURL:           baseURL,
		Timeout:           p.AuxiliaryTimeoutSeconds,
		Temperature:       0.1,
		RequestsPerSecond: p.LLMRequestsPerSecond,
	})
	if err != nil {
		slog.Warn("auxiliary llm disabled", "component", name, "error", err)
		return nil
	}
	return svc
}

func newMemoryStore(p *profile.Profile, st *store.Store) memory.Store {
	if p.MemoryBackend == profile.MemoryBackendNone || !p.IsEmbeddingEnabled() {
		return memory.NewNoop()
	}

	embedder, err := embedding.NewProvider(embedding.Config{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Dimensions: p.EmbeddingDimensions,
	})
	if err != nil {
		slog.Warn("long-term memory disabled", "error", err)
		return memory.NewNoop()
	}

	var index vector.Index
	switch p.MemoryBackend {
	case profile.MemoryBackendChromem:
		idx, err := chromem.NewPersistent(filepath.Join(p.Data, "memory"))
		if err != nil {
			slog.Warn("long-term memory disabled", "backend", p.MemoryBackend, "error", err)
			return memory.NewNoop()
		}
		index = idx
	case profile.MemoryBackendPostgres:
		index = storeindex.New(st)
	default:
		return memory.NewNoop()
	}

	cfg := memory.DefaultVectorConfig()
	if p.MemoryTopK > 0 {
		cfg.TopK = p.MemoryTopK
	}
	cfg.MinSimilarity = float32(p.MemoryMinSimilarity)
	slog.Info("long-term memory enabled",
		"backend", p.MemoryBackend,
		"top_k", cfg.TopK,
		"min_similarity", cfg.MinSimilarity,
	)
	return memory.NewVectorStore(embedder, index, cfg)
}
