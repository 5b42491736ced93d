package routing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/verdant/ai/agents"
	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/internal/jsonutil"
	"github.com/hrygo/verdant/ai/internal/strutil"
)

// ErrDefaultAgentRequired is returned when no default agent is registered.
var ErrDefaultAgentRequired = errors.New("default agent is required")

// Config configures the Router.
type Config struct {
	// Classifier enables LLM classification. Nil selects keyword matching.
	Classifier IntentClassifier
	// ClassifierTimeout bounds one classification call. Zero means no extra bound.
	ClassifierTimeout time.Duration
	// Keywords used when Classifier is nil. Nil selects DefaultKeywords.
	Keywords *Keywords
	Recorder RouteRecorder
	Logger   *slog.Logger
}

// DefaultConfig returns keyword-only routing.
func DefaultConfig() *Config {
	return &Config{
		ClassifierTimeout: 10 * time.Second,
	}
}

// Router maps a message to one registered agent.
type Router struct {
	agents            map[Intent]agents.Agent
	classifier        IntentClassifier
	classifierTimeout time.Duration
	matcher           *RuleMatcher
	recorder          RouteRecorder
	logger            *slog.Logger
}

// NewRouter creates a Router. The registry must contain IntentDefault.
func NewRouter(registry map[Intent]agents.Agent, cfg *Config) (*Router, error) {
	if registry[IntentDefault] == nil {
		return nil, ErrDefaultAgentRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	kw := DefaultKeywords()
	if cfg.Keywords != nil {
		kw = *cfg.Keywords
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := make(map[Intent]agents.Agent, len(registry))
	for intent, a := range registry {
		if a != nil {
			reg[intent] = a
		}
	}

	return &Router{
		agents:            reg,
		classifier:        cfg.Classifier,
		classifierTimeout: cfg.ClassifierTimeout,
		matcher:           NewRuleMatcher(kw),
		recorder:          cfg.Recorder,
		logger:            logger,
	}, nil
}

// ResolveAgent returns the agent that should answer message. It never fails.
func (r *Router) ResolveAgent(ctx context.Context, message string) agents.Agent {
	start := time.Now()
	var (
		intent Intent
		method string
	)
	if r.classifier != nil {
		intent, method = r.classify(ctx, message)
	} else {
		intent, method = r.match(message)
	}

	agent, ok := r.agents[intent]
	if !ok {
		intent, method = IntentDefault, MethodFallback
		agent = r.agents[IntentDefault]
	}

	r.logger.Debug("message routed",
		"input", strutil.Truncate(message, 50),
		"intent", intent,
		"agent", agent.Name(),
		"method", method,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if r.recorder != nil {
		r.recorder.RecordRoute(agent.Name(), method)
	}
	return agent
}

func (r *Router) match(message string) (Intent, string) {
	if r.matcher.MatchAction(message) {
		return IntentAction, MethodKeyword
	}
	if r.matcher.MatchReflection(message) {
		return IntentReflection, MethodKeyword
	}
	return IntentDefault, MethodFallback
}

const classifierSystemPrompt = `너는 반려식물 챗봇의 의도 분류기다.
사용자 메시지를 다음 중 하나로 분류하라.
- default: 일상적인 인사나 잡담
- reflection: 감정, 이유, 자기 성찰에 관한 이야기
- action: 구체적인 방법이나 도움을 요청
반드시 다음 JSON 하나만 출력하라: {"intent":"default"|"reflection"|"action"}`

type classification struct {
	Intent string `json:"intent"`
}

// classify asks the classifier. Any failure resolves to the default intent;
// keyword matching is not consulted.
func (r *Router) classify(ctx context.Context, message string) (Intent, string) {
	if r.classifierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.classifierTimeout)
		defer cancel()
	}

	raw, _, err := r.classifier.Chat(ctx, []llm.Message{
		llm.SystemPrompt(classifierSystemPrompt),
		llm.UserMessage(message),
	})
	if err != nil {
		r.logger.Warn("intent classifier failed", "error", err)
		return IntentDefault, MethodFallback
	}

	var c classification
	if err := jsonutil.DecodeObject(raw, &c); err != nil {
		r.logger.Warn("intent classifier returned malformed output",
			"raw", strutil.Truncate(raw, 50),
			"error", err,
		)
		return IntentDefault, MethodFallback
	}
	intent, ok := ParseIntent(strings.ToLower(strings.TrimSpace(c.Intent)))
	if !ok {
		r.logger.Debug("intent classifier returned unknown intent", "intent", c.Intent)
		return IntentDefault, MethodFallback
	}
	return intent, MethodClassifier
}
