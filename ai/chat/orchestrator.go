// Package chat runs one user turn end to end.
package chat

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/verdant/ai/agents"
	"github.com/hrygo/verdant/ai/internal/strutil"
	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/memory"
	"github.com/hrygo/verdant/ai/safety"
)

// DirectionBot marks messages sent by the plant.
const DirectionBot = "BOT"

// MinRememberLength is the rune count a user message needs to be remembered.
const MinRememberLength = 20

// DefaultAuxiliaryTimeout bounds each auxiliary call of a turn.
const DefaultAuxiliaryTimeout = 10 * time.Second

// OutboundMessage is the reply handed back to the transport layer.
type OutboundMessage struct {
	TurnID    string    `json:"turn_id"`
	UserID    int64     `json:"user_id"`
	PlantID   int64     `json:"plant_id"`
	Message   string    `json:"message"`
	SendDate  time.Time `json:"send_date"`
	Direction string    `json:"direction"`
}

// AgentResolver picks the agent for a message.
type AgentResolver interface {
	ResolveAgent(ctx context.Context, message string) agents.Agent
}

// RiskAssessor builds safety plans.
type RiskAssessor interface {
	BuildPlan(ctx context.Context, message string) (*safety.SafetyPlan, error)
}

// ResponseModerator reviews drafted replies.
type ResponseModerator interface {
	Moderate(ctx context.Context, in safety.ModerationInput) safety.ModerationResult
}

// Redactor masks personal data before text is stored.
type Redactor interface {
	Redact(text string) string
}

// HistoryRecorder keeps the conversation agents read back as history.
// *session.History satisfies it.
type HistoryRecorder interface {
	Append(ctx context.Context, userID, plantID int64, msgs ...llm.Message) error
}

// Metrics receives turn-level measurements. *metrics.PrometheusExporter satisfies it.
type Metrics interface {
	TurnStarted() func(agent string, success bool)
	RecordSafetyPlan(source string)
	RecordModeration(riskLevel string, escalated bool)
	RecordMemoryOp(op string, success bool)
	RecordFallback(subsystem string)
}

// Config wires the orchestrator.
type Config struct {
	Router    AgentResolver
	Risk      RiskAssessor
	Memory    memory.Store
	Moderator ResponseModerator // optional
	Redactor  Redactor          // optional, applied to remembered text
	History   HistoryRecorder   // optional, receives the delivered exchange
	Metrics   Metrics           // optional
	Logger    *slog.Logger

	// AuxiliaryTimeout bounds risk assessment, memory calls and moderation.
	AuxiliaryTimeout time.Duration
	// Now is used for SendDate. Defaults to time.Now.
	Now func() time.Time
}

// Orchestrator composes routing, safety, memory and agents into one turn.
type Orchestrator struct {
	router     AgentResolver
	risk       RiskAssessor
	memory     memory.Store
	moderator  ResponseModerator
	redactor   Redactor
	history    HistoryRecorder
	metrics    Metrics
	logger     *slog.Logger
	auxTimeout time.Duration
	now        func() time.Time
}

// NewOrchestrator creates an Orchestrator. Router is required; a nil Risk
// assessor uses keyword screening and a nil Memory store remembers nothing.
func NewOrchestrator(cfg Config) *Orchestrator {
	o := &Orchestrator{
		router:     cfg.Router,
		risk:       cfg.Risk,
		memory:     cfg.Memory,
		moderator:  cfg.Moderator,
		redactor:   cfg.Redactor,
		history:    cfg.History,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		auxTimeout: cfg.AuxiliaryTimeout,
		now:        cfg.Now,
	}
	if o.risk == nil {
		o.risk = safety.NewAssessor()
	}
	if o.memory == nil {
		o.memory = memory.NewNoop()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.auxTimeout <= 0 {
		o.auxTimeout = DefaultAuxiliaryTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// HandleTurn answers one user message. Only the agent call can fail the turn.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, plantID int64, message string) (*OutboundMessage, error) {
	turnID := uuid.NewString()
	logger := o.logger.With("turn_id", turnID, "user_id", userID, "plant_id", plantID)
	start := time.Now()

	agent := o.router.ResolveAgent(ctx, message)
	var finish func(string, bool)
	if o.metrics != nil {
		finish = o.metrics.TurnStarted()
	}

	plan, memories := o.gatherContext(ctx, logger, userID, plantID, message)

	draft, err := agent.ProcessChat(ctx, userID, plantID, message, buildOptions(plan, memories))
	if err != nil {
		logger.Error("agent failed", "agent", agent.Name(), "error", err)
		o.remember(ctx, logger, userID, plantID, message)
		if finish != nil {
			finish(agent.Name(), false)
		}
		return nil, err
	}

	reply := draft
	if o.moderator != nil {
		reply = o.moderate(ctx, logger, message, draft)
	}

	out := &OutboundMessage{
		TurnID:    turnID,
		UserID:    userID,
		PlantID:   plantID,
		Message:   reply,
		SendDate:  o.now(),
		Direction: DirectionBot,
	}

	o.recordExchange(ctx, logger, userID, plantID, message, reply)
	o.remember(ctx, logger, userID, plantID, message)

	if finish != nil {
		finish(agent.Name(), true)
	}
	logger.Info("turn completed",
		"agent", agent.Name(),
		"has_safety_plan", plan != nil,
		"memories", len(memories),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// gatherContext runs risk assessment and memory retrieval concurrently.
// Failures are logged and resolve to absence.
func (o *Orchestrator) gatherContext(ctx context.Context, logger *slog.Logger, userID, plantID int64, message string) (*safety.SafetyPlan, []memory.Snippet) {
	var (
		plan     *safety.SafetyPlan
		memories []memory.Snippet
	)

	// Goroutines never return errors so neither branch cancels the other.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		actx, cancel := context.WithTimeout(gctx, o.auxTimeout)
		defer cancel()
		p, err := o.risk.BuildPlan(actx, message)
		if err != nil {
			logger.Warn("risk assessment failed", "error", err)
			o.recordFallback("risk")
			return nil
		}
		plan = p
		if p != nil && o.metrics != nil {
			o.metrics.RecordSafetyPlan(string(p.Source))
		}
		return nil
	})
	g.Go(func() error {
		actx, cancel := context.WithTimeout(gctx, o.auxTimeout)
		defer cancel()
		m, err := o.memory.RetrieveContext(actx, userID, plantID, message)
		if o.metrics != nil {
			o.metrics.RecordMemoryOp("retrieve", err == nil)
		}
		if err != nil {
			logger.Warn("memory retrieval failed", "error", err)
			o.recordFallback("memory")
			return nil
		}
		memories = m
		return nil
	})
	_ = g.Wait()

	return plan, memories
}

func (o *Orchestrator) moderate(ctx context.Context, logger *slog.Logger, message, draft string) string {
	mctx, cancel := context.WithTimeout(ctx, o.auxTimeout)
	defer cancel()

	result := o.moderator.Moderate(mctx, safety.ModerationInput{UserMessage: message, BotDraft: draft})
	if o.metrics != nil {
		o.metrics.RecordModeration(string(result.RiskLevel), result.EscalationRequired)
	}
	if result.EscalationRequired {
		logger.Warn("moderation requested escalation",
			"risk_level", result.RiskLevel,
			"actions", result.Actions,
			"input", strutil.Truncate(message, safety.MaxInputLogLength),
		)
	}
	return result.FinalResponse
}

// recordExchange appends the user message and the reply actually delivered,
// so an unmoderated draft never becomes history.
func (o *Orchestrator) recordExchange(ctx context.Context, logger *slog.Logger, userID, plantID int64, message, reply string) {
	if o.history == nil {
		return
	}
	if err := o.history.Append(ctx, userID, plantID, llm.UserMessage(message), llm.AssistantMessage(reply)); err != nil {
		logger.Warn("failed to append history", "error", err)
	}
}

// remember stores the user's message when it is long enough. It is skipped if
// the turn is already cancelled; once started it runs to completion.
func (o *Orchestrator) remember(ctx context.Context, logger *slog.Logger, userID, plantID int64, message string) {
	if utf8.RuneCountInString(message) < MinRememberLength {
		return
	}
	if ctx.Err() != nil {
		logger.Debug("turn cancelled, memory write skipped")
		return
	}

	content := message
	if o.redactor != nil {
		content = o.redactor.Redact(message)
	}

	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.auxTimeout)
	defer cancel()
	err := o.memory.Remember(rctx, userID, plantID, content, map[string]any{"source": "user"})
	if o.metrics != nil {
		o.metrics.RecordMemoryOp("remember", err == nil)
	}
	if err != nil {
		logger.Warn("failed to remember message", "error", err)
	}
}

func (o *Orchestrator) recordFallback(subsystem string) {
	if o.metrics != nil {
		o.metrics.RecordFallback(subsystem)
	}
}

// buildOptions returns nil when there is no optional context.
func buildOptions(plan *safety.SafetyPlan, memories []memory.Snippet) *agents.ChatOptions {
	if plan == nil && len(memories) == 0 {
		return nil
	}
	opts := &agents.ChatOptions{SafetyPlan: plan}
	if len(memories) > 0 {
		opts.LongTermMemories = memories
	}
	return opts
}
