package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/internal/strutil"
)

// Deps are the collaborators shared by every strategy. Only LLM is required;
// strategies still hold no mutable state of their own.
type Deps struct {
	LLM      ChatService
	Profiles ProfileLookup
	History  HistoryStore
	Usage    UsageRecorder
	Logger   *slog.Logger
}

// strategy is the common reply pipeline; strategies differ only in style.
type strategy struct {
	deps  Deps
	name  string
	style string
}

// NewDefaultAgent creates the everyday small-talk strategy.
func NewDefaultAgent(deps Deps) Agent {
	return newStrategy(NameDefault, defaultStyle, deps)
}

// NewReflectionAgent creates the strategy for feelings and "why" questions.
func NewReflectionAgent(deps Deps) Agent {
	return newStrategy(NameReflection, reflectionStyle, deps)
}

// NewActionAgent creates the strategy for concrete requests for help.
func NewActionAgent(deps Deps) Agent {
	return newStrategy(NameAction, actionStyle, deps)
}

func newStrategy(name, style string, deps Deps) *strategy {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &strategy{deps: deps, name: name, style: style}
}

func (s *strategy) Name() string {
	return s.name
}

// ProcessChat assembles persona, history and optional context into one completion call.
func (s *strategy) ProcessChat(ctx context.Context, userID, plantID int64, message string, opts *ChatOptions) (string, error) {
	if s.deps.LLM == nil {
		return "", ErrLLMNotConfigured
	}

	start := time.Now()
	persona := s.lookupPersona(ctx, userID, plantID)
	history := s.recentHistory(ctx, userID, plantID)
	systemPrompt := buildSystemPrompt(persona, s.style, opts)

	reply, stats, err := s.deps.LLM.Chat(ctx, llm.FormatMessages(systemPrompt, message, history))
	if err != nil {
		return "", fmt.Errorf("%s agent chat: %w", s.name, err)
	}
	if s.deps.Usage != nil {
		s.deps.Usage.RecordLLMUsage(s.name, stats)
	}

	s.deps.Logger.Debug("reply generated",
		"agent", s.name,
		"user_id", userID,
		"plant_id", plantID,
		"history", len(history),
		"has_safety_plan", opts != nil && opts.SafetyPlan != nil,
		"memories", memoryCount(opts),
		"duration_ms", time.Since(start).Milliseconds(),
		"reply", strutil.Truncate(reply, 50),
	)
	return reply, nil
}

func (s *strategy) lookupPersona(ctx context.Context, userID, plantID int64) *personaView {
	if s.deps.Profiles == nil {
		return nil
	}
	p, err := s.deps.Profiles.GetPersona(ctx, userID, plantID)
	if err != nil {
		s.deps.Logger.Warn("persona lookup failed, using generic persona",
			"user_id", userID,
			"plant_id", plantID,
			"error", err,
		)
		return nil
	}
	if p == nil {
		return nil
	}
	return &personaView{
		Nickname:    p.Nickname,
		PlantName:   p.PlantName,
		Species:     p.Species,
		Personality: p.Personality,
	}
}

func (s *strategy) recentHistory(ctx context.Context, userID, plantID int64) []llm.Message {
	if s.deps.History == nil {
		return nil
	}
	msgs, err := s.deps.History.Recent(ctx, userID, plantID)
	if err != nil {
		s.deps.Logger.Warn("failed to load chat history", "user_id", userID, "plant_id", plantID, "error", err)
		return nil
	}
	return msgs
}

func memoryCount(opts *ChatOptions) int {
	if opts == nil {
		return 0
	}
	return len(opts.LongTermMemories)
}
