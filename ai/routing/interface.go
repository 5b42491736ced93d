// Package routing decides which conversational strategy answers a message.
package routing

import (
	"context"

	"github.com/hrygo/verdant/ai/core/llm"
)

// Intent is the routing decision for one message.
type Intent string

const (
	IntentDefault    Intent = "default"
	IntentReflection Intent = "reflection"
	IntentAction     Intent = "action"
)

// ParseIntent returns the Intent named by s and whether it is known.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentDefault, IntentReflection, IntentAction:
		return Intent(s), true
	default:
		return IntentDefault, false
	}
}

// Route method labels used in logs and metrics.
const (
	MethodClassifier = "classifier"
	MethodKeyword    = "keyword"
	MethodFallback   = "fallback"
)

// IntentClassifier is the completion capability used for LLM classification.
type IntentClassifier interface {
	Chat(ctx context.Context, messages []llm.Message) (string, *llm.LLMCallStats, error)
}

// RouteRecorder receives routing decisions.
type RouteRecorder interface {
	RecordRoute(agent, method string)
}
