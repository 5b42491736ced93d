package safety

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/internal/jsonutil"
	"github.com/hrygo/verdant/ai/internal/strutil"
)

// RiskLevel is the canonical moderation verdict.
type RiskLevel string

const (
	RiskLevelNone    RiskLevel = "none"
	RiskLevelMonitor RiskLevel = "monitor"
	RiskLevelHigh    RiskLevel = "high"
)

// NormalizeRiskLevel maps any upstream value onto one of the three levels.
func NormalizeRiskLevel(v any) RiskLevel {
	s, ok := v.(string)
	if !ok {
		return RiskLevelNone
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return RiskLevelHigh
	case "monitor", "medium":
		return RiskLevelMonitor
	default:
		return RiskLevelNone
	}
}

// ModerationInput is the exchange under review.
type ModerationInput struct {
	UserMessage string
	BotDraft    string
}

// ModerationResult is the normalized verdict on a drafted reply.
type ModerationResult struct {
	RiskLevel          RiskLevel `json:"risk_level"`
	FinalResponse      string    `json:"final_response"`
	Actions            []string  `json:"actions"`
	EscalationRequired bool      `json:"escalation_required"`
}

// Moderator reviews bot drafts before they are delivered.
type Moderator struct {
	llm    ChatService
	logger *slog.Logger
}

// NewModerator creates a Moderator. A nil service makes every draft pass through.
func NewModerator(svc ChatService, logger *slog.Logger) *Moderator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Moderator{llm: svc, logger: logger}
}

const moderationSystemPrompt = `너는 식물 페르소나 챗봇의 답변 검수자다.
사용자 메시지와 봇의 초안을 읽고 위험도를 판단한 뒤, 필요하면 초안을 안전하게 고쳐라.
반드시 다음 형식의 JSON 하나만 출력하라:
{"riskLevel": "none|monitor|high", "finalResponse": "최종 답변", "actions": ["후속 조치"], "escalationRequired": false}`

// rawVerdict accepts any JSON shape; fields are validated in Moderate.
type rawVerdict struct {
	RiskLevel          any `json:"riskLevel"`
	FinalResponse      any `json:"finalResponse"`
	Actions            any `json:"actions"`
	EscalationRequired any `json:"escalationRequired"`
}

// Moderate reviews in.BotDraft. It never fails; on any upstream problem the
// draft is returned unchanged with RiskLevelNone.
func (m *Moderator) Moderate(ctx context.Context, in ModerationInput) ModerationResult {
	fallback := passThrough(in.BotDraft)
	if m.llm == nil {
		return fallback
	}

	payload, err := json.Marshal(map[string]string{
		"userMessage": in.UserMessage,
		"botDraft":    in.BotDraft,
	})
	if err != nil {
		return fallback
	}

	raw, _, err := m.llm.Chat(ctx, []llm.Message{
		llm.SystemPrompt(moderationSystemPrompt),
		llm.UserMessage(string(payload)),
	})
	if err != nil {
		m.logger.Warn("moderation call failed", "error", err)
		return fallback
	}

	var v rawVerdict
	if err := jsonutil.DecodeObject(raw, &v); err != nil {
		m.logger.Warn("moderation returned malformed verdict",
			"raw", strutil.Truncate(raw, MaxInputLogLength),
			"error", err,
		)
		return fallback
	}

	result := ModerationResult{
		RiskLevel:     NormalizeRiskLevel(v.RiskLevel),
		FinalResponse: in.BotDraft,
		Actions:       stringList(v.Actions),
	}
	if s, ok := v.FinalResponse.(string); ok && !strutil.IsBlank(s) {
		result.FinalResponse = s
	}
	if b, ok := v.EscalationRequired.(bool); ok {
		result.EscalationRequired = b
	}
	return result
}

func passThrough(draft string) ModerationResult {
	return ModerationResult{
		RiskLevel:     RiskLevelNone,
		FinalResponse: draft,
		Actions:       []string{},
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && !strutil.IsBlank(s) {
			out = append(out, s)
		}
	}
	return out
}
