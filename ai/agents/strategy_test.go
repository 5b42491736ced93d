package agents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/verdant/ai/core/llm"
	"github.com/hrygo/verdant/ai/memory"
	"github.com/hrygo/verdant/ai/safety"
	"github.com/hrygo/verdant/store"
)

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
}

func (f *fakeLLM) Chat(_ context.Context, messages []llm.Message) (string, *llm.LLMCallStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	if f.err != nil {
		return "", nil, f.err
	}
	return f.reply, &llm.LLMCallStats{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

type fakeProfiles struct {
	persona *store.Persona
	err     error
}

func (f *fakeProfiles) GetPersona(context.Context, int64, int64) (*store.Persona, error) {
	return f.persona, f.err
}

type fakeHistory struct {
	recent   []llm.Message
	appended []llm.Message
}

func (f *fakeHistory) Recent(context.Context, int64, int64) ([]llm.Message, error) {
	return f.recent, nil
}

func (f *fakeHistory) Append(_ context.Context, _, _ int64, msgs ...llm.Message) error {
	f.appended = append(f.appended, msgs...)
	return nil
}

type usageSpy struct {
	agents []string
}

func (u *usageSpy) RecordLLMUsage(agent string, _ *llm.LLMCallStats) {
	u.agents = append(u.agents, agent)
}

func TestStrategyNames(t *testing.T) {
	deps := Deps{LLM: &fakeLLM{}}
	assert.Equal(t, NameDefault, NewDefaultAgent(deps).Name())
	assert.Equal(t, NameReflection, NewReflectionAgent(deps).Name())
	assert.Equal(t, NameAction, NewActionAgent(deps).Name())
}

func TestProcessChat_LLMNotConfigured(t *testing.T) {
	_, err := NewDefaultAgent(Deps{}).ProcessChat(context.Background(), 1, 1, "안녕", nil)
	assert.ErrorIs(t, err, ErrLLMNotConfigured)
}

func TestProcessChat_PersonaHistoryAndOptions(t *testing.T) {
	svc := &fakeLLM{reply: "오늘 햇살이 좋아서 기분이 좋아!"}
	hist := &fakeHistory{recent: []llm.Message{
		llm.UserMessage("어제 물 줬어"),
		llm.AssistantMessage("고마워!"),
	}}
	usage := &usageSpy{}
	agent := NewReflectionAgent(Deps{
		LLM: svc,
		Profiles: &fakeProfiles{persona: &store.Persona{
			Nickname:    "지수",
			PlantName:   "초록이",
			Species:     "몬스테라",
			Personality: "느긋함",
		}},
		History: hist,
		Usage:   usage,
	})

	score := float32(0.9)
	plan := &safety.SafetyPlan{
		TriggerSummary: "위기 표현 감지",
		ReasoningSteps: [3]string{"step one", "step two", "step three"},
		FinalReminder:  "상담 전화 109를 안내하세요.",
	}
	reply, err := agent.ProcessChat(context.Background(), 1, 2, "요즘 왜 이렇게 힘들까", &ChatOptions{
		SafetyPlan:       plan,
		LongTermMemories: []memory.Snippet{{ID: "m1", Content: "시험 준비 중", Score: &score}},
	})
	require.NoError(t, err)
	assert.Equal(t, svc.reply, reply)

	require.Len(t, svc.calls, 1)
	msgs := svc.calls[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	system := msgs[0].Content
	assert.Contains(t, system, "초록이")
	assert.Contains(t, system, "몬스테라")
	assert.Contains(t, system, "지수")
	assert.Contains(t, system, "시험 준비 중")
	assert.Contains(t, system, "1. step one")
	assert.Contains(t, system, "3. step three")
	assert.Contains(t, system, "109")
	assert.Equal(t, "어제 물 줬어", msgs[1].Content)
	assert.Equal(t, "요즘 왜 이렇게 힘들까", msgs[3].Content)

	// The draft reply is unmoderated, so the strategy never records it.
	assert.Empty(t, hist.appended)
	assert.Equal(t, []string{NameReflection}, usage.agents)
}

func TestProcessChat_GenericPersona(t *testing.T) {
	tests := []struct {
		name     string
		profiles ProfileLookup
	}{
		{name: "no lookup"},
		{name: "missing persona", profiles: &fakeProfiles{}},
		{name: "lookup error", profiles: &fakeProfiles{err: errors.New("db down")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeLLM{reply: "안녕!"}
			agent := NewDefaultAgent(Deps{LLM: svc, Profiles: tt.profiles})

			reply, err := agent.ProcessChat(context.Background(), 1, 1, "안녕", nil)
			require.NoError(t, err)
			assert.Equal(t, "안녕!", reply)

			system := svc.calls[0][0].Content
			assert.NotContains(t, system, "[페르소나]")
			assert.NotContains(t, system, "[기억]")
			assert.NotContains(t, system, "[안전 지침")
			assert.Len(t, svc.calls[0], 2)
		})
	}
}

func TestProcessChat_ErrorWrapsAgentName(t *testing.T) {
	hist := &fakeHistory{}
	agent := NewActionAgent(Deps{LLM: &fakeLLM{err: errors.New("upstream 500")}, History: hist})

	_, err := agent.ProcessChat(context.Background(), 1, 1, "물 주는 방법 알려줘", &ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "action agent chat")
	assert.Empty(t, hist.appended)
}

func TestBuildSystemPrompt_StylesDiffer(t *testing.T) {
	a := buildSystemPrompt(nil, defaultStyle, nil)
	b := buildSystemPrompt(nil, reflectionStyle, nil)
	c := buildSystemPrompt(nil, actionStyle, nil)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, b, c)
	assert.Contains(t, c, "단계")
}
