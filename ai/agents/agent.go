// Package agents provides the conversational strategies that draft plant replies.
package agents

import (
	"context"
	"errors"

	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/memory"
	"github.com/hrygo/verdant/ai/safety"
	"github.com/hrygo/verdant/store"
)

// Strategy names, one per intent.
const (
	NameDefault    = "default"
	NameReflection = "reflection"
	NameAction     = "action"
)

// ErrLLMNotConfigured is returned when a strategy has no completion service.
var ErrLLMNotConfigured = errors.New("llm service not configured")

// Agent drafts the plant's reply to one user message.
type Agent interface {
	// Name returns the strategy name.
	Name() string

	// ProcessChat returns the reply text. opts may be nil.
	ProcessChat(ctx context.Context, userID, plantID int64, message string, opts *ChatOptions) (string, error)
}

// ChatOptions carries optional per-turn context. Absent values are left nil/empty.
type ChatOptions struct {
	SafetyPlan       *safety.SafetyPlan
	LongTermMemories []memory.Snippet
}

// ChatService is the completion capability strategies call.
type ChatService interface {
	Chat(ctx context.Context, messages []llm.Message) (string, *llm.LLMCallStats, error)
}

// ProfileLookup reads persona data for prompt personalization.
type ProfileLookup interface {
	GetPersona(ctx context.Context, userID, plantID int64) (*store.Persona, error)
}

// HistoryStore reads the recent conversation of a (user, plant) pair.
// Strategies never write to it; the delivered reply is recorded by the caller.
type HistoryStore interface {
	Recent(ctx context.Context, userID, plantID int64) ([]llm.Message, error)
}

// UsageRecorder receives token usage of completion calls.
type UsageRecorder interface {
	RecordLLMUsage(agent string, stats *llm.LLMCallStats)
}
