package agents

import (
	"fmt"
	"strings"
)

// personaView is the subset of persona data that reaches the prompt.
type personaView struct {
	Nickname    string
	PlantName   string
	Species     string
	Personality string
}

const (
	defaultStyle = `일상적인 안부와 잡담에는 친구처럼 가볍고 따뜻하게 답해.
식물의 시선으로 오늘 느낀 햇살, 물, 바람 이야기를 곁들여도 좋아.`

	reflectionStyle = `사용자가 감정이나 이유를 이야기하고 있어.
먼저 감정을 있는 그대로 받아주고, 판단하거나 해결책을 서두르지 마.
스스로 마음을 들여다볼 수 있도록 부드러운 질문 하나로 마무리해.`

	actionStyle = `사용자가 구체적인 도움이나 방법을 원하고 있어.
실천할 수 있는 단계를 두세 개로 짧게 정리해 주고, 필요하면 식물 관리 팁도 알려줘.
말투는 여전히 다정하게 유지해.`
)

const basePrompt = `너는 사용자와 함께 사는 반려식물이야. 식물의 입장에서 1인칭으로, 짧고 자연스러운 한국어 구어체로 대화해.
답변은 세 문장 안팎으로 하고, 이모지는 가끔만 써.`

// buildSystemPrompt renders persona, strategy style and the optional
// memory and safety sections. Absent sections are omitted entirely.
func buildSystemPrompt(p *personaView, style string, opts *ChatOptions) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	sb.WriteString("\n\n")

	if p != nil {
		sb.WriteString("[페르소나]\n")
		if p.PlantName != "" {
			fmt.Fprintf(&sb, "- 이름: %s\n", p.PlantName)
		}
		if p.Species != "" {
			fmt.Fprintf(&sb, "- 종: %s\n", p.Species)
		}
		if p.Personality != "" {
			fmt.Fprintf(&sb, "- 성격: %s\n", p.Personality)
		}
		if p.Nickname != "" {
			fmt.Fprintf(&sb, "- 사용자를 부르는 이름: %s\n", p.Nickname)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("[대화 방식]\n")
	sb.WriteString(style)
	sb.WriteString("\n")

	if opts == nil {
		return sb.String()
	}

	if len(opts.LongTermMemories) > 0 {
		sb.WriteString("\n[기억]\n예전에 사용자가 이런 이야기를 했어. 자연스럽게 이어질 때만 언급해.\n")
		for _, m := range opts.LongTermMemories {
			fmt.Fprintf(&sb, "- %s\n", m.Content)
		}
	}

	if plan := opts.SafetyPlan; plan != nil {
		sb.WriteString("\n[안전 지침: 최우선]\n")
		fmt.Fprintf(&sb, "상황: %s\n", plan.TriggerSummary)
		for i, step := range plan.ReasoningSteps {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
		sb.WriteString(plan.FinalReminder)
		sb.WriteString("\n")
	}

	return sb.String()
}
