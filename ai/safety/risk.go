// Package safety screens chat turns for crisis signals and reviews drafted replies.
package safety

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/internal/jsonutil"
	"github.com/hrygo/verdant/ai/internal/strutil"
)

// RiskThreshold is the minimum LLM score that produces a safety plan.
const RiskThreshold = 0.55

// DefaultScorerTimeout bounds one LLM scoring call. It is shorter than the
// auxiliary budget of a turn so the keyword scan still runs after a slow scorer.
const DefaultScorerTimeout = 5 * time.Second

// MaxInputLogLength bounds user text written to logs.
const MaxInputLogLength = 50

// PlanSource records which path produced a SafetyPlan.
type PlanSource string

const (
	PlanSourceLLM     PlanSource = "llm"
	PlanSourceKeyword PlanSource = "keyword"
)

const defaultTriggerSummary = "대화에서 정서적 위기 신호가 감지됨"

// reasoningSteps is the fixed intervention sequence woven into every plan.
var reasoningSteps = [3]string{
	"사용자가 표현한 감정을 그대로 되짚어 주고, 그렇게 느끼는 것이 자연스럽다고 인정해 주세요.",
	"그런 감정이나 생각이 들게 된 계기나 사건을 부드럽게 물어보세요.",
	"지금 당장 위험한 상황인지 확인하고, 위험하다면 전문가나 응급 지원(정신건강 위기상담 109, 응급 112/119)에 연락하도록 안내하세요.",
}

const finalReminder = "답변 마지막에 반드시 전문 상담이나 위기상담 전화(109)를 함께 안내하세요."

// DefaultCrisisKeywords is the ordered crisis phrase list scanned when the
// LLM scorer gives no verdict or a low score.
var DefaultCrisisKeywords = []string{
	"죽고 싶",
	"죽고싶",
	"자살",
	"끝내고 싶",
	"사라지고 싶",
	"살기 싫",
	"살고 싶지 않",
	"자해",
	"없어지고 싶",
	"suicide",
	"kill myself",
	"end my life",
	"want to die",
}

// SafetyPlan is the intervention guidance attached to a risky turn.
type SafetyPlan struct {
	TriggerSummary string     `json:"trigger_summary"`
	FinalReminder  string     `json:"final_reminder"`
	Source         PlanSource `json:"source"`
	ReasoningSteps [3]string  `json:"reasoning_steps"`
}

// ChatService is the completion capability the assessor and moderator call.
type ChatService interface {
	Chat(ctx context.Context, messages []llm.Message) (string, *llm.LLMCallStats, error)
}

// Assessor scores messages for crisis risk.
type Assessor struct {
	scorer        ChatService
	scorerTimeout time.Duration
	keywords      []string
	logger        *slog.Logger
}

// AssessorOption configures an Assessor.
type AssessorOption func(*Assessor)

// WithScorer enables LLM scoring. A nil scorer leaves keyword scanning only.
func WithScorer(scorer ChatService) AssessorOption {
	return func(a *Assessor) { a.scorer = scorer }
}

// WithScorerTimeout bounds each scoring call. Non-positive values are ignored.
func WithScorerTimeout(d time.Duration) AssessorOption {
	return func(a *Assessor) {
		if d > 0 {
			a.scorerTimeout = d
		}
	}
}

// WithCrisisKeywords replaces the crisis phrase list. Order is scan order.
func WithCrisisKeywords(keywords []string) AssessorOption {
	return func(a *Assessor) {
		a.keywords = normalizeKeywords(keywords)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AssessorOption {
	return func(a *Assessor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAssessor creates an Assessor.
func NewAssessor(opts ...AssessorOption) *Assessor {
	a := &Assessor{
		scorerTimeout: DefaultScorerTimeout,
		keywords:      normalizeKeywords(DefaultCrisisKeywords),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

const riskSystemPrompt = `너는 정서적 위기 신호를 판별하는 분류기다.
사용자 메시지에서 자살, 자해, 심한 우울 신호의 강도를 0과 1 사이 점수로 평가하라.
반드시 다음 JSON 한 줄만 출력하라: {"score": 0.0, "reason": "판단 근거 한 문장"}`

type riskVerdict struct {
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// BuildPlan returns a SafetyPlan when message carries a crisis signal, or nil.
// The error is non-nil only when ctx is cancelled. A deadline, whether the
// scorer's own or the caller's, still falls through to the keyword scan.
func (a *Assessor) BuildPlan(ctx context.Context, message string) (*SafetyPlan, error) {
	if strutil.IsBlank(message) {
		return nil, nil
	}

	if a.scorer != nil {
		if verdict, ok := a.score(ctx, message); ok {
			if *verdict.Score >= RiskThreshold {
				summary := strings.TrimSpace(verdict.Reason)
				if summary == "" {
					summary = defaultTriggerSummary
				}
				a.logger.Warn("safety plan built",
					"source", PlanSourceLLM,
					"score", *verdict.Score,
					"input", strutil.Truncate(message, MaxInputLogLength),
				)
				return newPlan(summary, PlanSourceLLM), nil
			}
			a.logger.Debug("risk score below threshold", "score", *verdict.Score)
		}
	}

	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, err
	}

	if phrase, ok := a.scanKeywords(message); ok {
		a.logger.Warn("safety plan built",
			"source", PlanSourceKeyword,
			"keyword", phrase,
			"input", strutil.Truncate(message, MaxInputLogLength),
		)
		return newPlan(fmt.Sprintf("위기 표현 감지: %q", phrase), PlanSourceKeyword), nil
	}
	return nil, nil
}

// score asks the LLM for a verdict. ok is false when no usable verdict came back.
func (a *Assessor) score(ctx context.Context, message string) (riskVerdict, bool) {
	ctx, cancel := context.WithTimeout(ctx, a.scorerTimeout)
	defer cancel()

	raw, _, err := a.scorer.Chat(ctx, []llm.Message{
		llm.SystemPrompt(riskSystemPrompt),
		llm.UserMessage(message),
	})
	if err != nil {
		a.logger.Warn("risk scorer failed", "error", err)
		return riskVerdict{}, false
	}

	var v riskVerdict
	if err := jsonutil.DecodeObject(raw, &v); err != nil || v.Score == nil {
		a.logger.Warn("risk scorer returned malformed verdict",
			"raw", strutil.Truncate(raw, MaxInputLogLength),
			"error", err,
		)
		return riskVerdict{}, false
	}
	return v, true
}

func (a *Assessor) scanKeywords(message string) (string, bool) {
	folded := strings.ToLower(message)
	for _, kw := range a.keywords {
		if strings.Contains(folded, kw) {
			return kw, true
		}
	}
	return "", false
}

func newPlan(summary string, source PlanSource) *SafetyPlan {
	return &SafetyPlan{
		TriggerSummary: summary,
		ReasoningSteps: reasoningSteps,
		FinalReminder:  finalReminder,
		Source:         source,
	}
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
