package routing

import "strings"

// Keywords are the case-insensitive substrings that select a strategy when
// no classifier is configured. Action is checked before Reflection.
type Keywords struct {
	Action     []string
	Reflection []string
}

// DefaultKeywords returns the built-in Korean and English keyword lists.
func DefaultKeywords() Keywords {
	return Keywords{
		Action: []string{
			"어떻게", "방법", "알려", "도와", "추천", "해야", "할까",
			"how", "help", "what should",
		},
		Reflection: []string{
			"왜", "기분", "느낌", "마음", "생각",
			"why", "feel",
		},
	}
}

// RuleMatcher matches messages against keyword lists.
type RuleMatcher struct {
	action     []string
	reflection []string
}

// NewRuleMatcher creates a RuleMatcher. Keywords are lowercased once here.
func NewRuleMatcher(kw Keywords) *RuleMatcher {
	return &RuleMatcher{
		action:     foldKeywords(kw.Action),
		reflection: foldKeywords(kw.Reflection),
	}
}

// MatchAction reports whether the message contains any action keyword.
func (m *RuleMatcher) MatchAction(input string) bool {
	return containsAny(strings.ToLower(input), m.action)
}

// MatchReflection reports whether the message contains any reflection keyword.
func (m *RuleMatcher) MatchReflection(input string) bool {
	return containsAny(strings.ToLower(input), m.reflection)
}

func containsAny(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(folded, kw) {
			return true
		}
	}
	return false
}

func foldKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
