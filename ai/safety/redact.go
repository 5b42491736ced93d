package safety

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// PIIType identifies a kind of personal data the Redactor masks.
type PIIType int

const (
	PIIPhone PIIType = iota
	PIIResidentID
	PIIEmail
	PIICard
)

var piiPatterns = map[PIIType]func() *regexp.Regexp{
	// Korean mobile numbers: 010-1234-5678, 01012345678, 011 234 5678.
	PIIPhone: sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\b01[016789][-\s]?\d{3,4}[-\s]?\d{4}\b`)
	}),
	// Resident registration numbers: YYMMDD-NNNNNNN.
	PIIResidentID: sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\b\d{2}(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])-?[1-8]\d{6}\b`)
	}),
	PIIEmail: sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
	}),
	// Card numbers, optionally grouped by four.
	PIICard: sync.OnceValue(func() *regexp.Regexp {
		return regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)
	}),
}

// Redactor masks personal data in free text.
type Redactor struct {
	patterns []*regexp.Regexp
	mask     string
}

// NewRedactor creates a Redactor for the given types, or all types when none are given.
func NewRedactor(types ...PIIType) *Redactor {
	if len(types) == 0 {
		types = []PIIType{PIIPhone, PIIResidentID, PIIEmail, PIICard}
	}
	r := &Redactor{mask: "[개인정보]"}
	for _, t := range types {
		if p, ok := piiPatterns[t]; ok {
			r.patterns = append(r.patterns, p())
		}
	}
	return r
}

type span struct{ start, end int }

// Redact returns text with every match replaced by a mask. Overlapping
// matches are merged.
func (r *Redactor) Redact(text string) string {
	var spans []span
	for _, re := range r.patterns {
		for _, m := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, span{m[0], m[1]})
		}
	}
	if len(spans) == 0 {
		return text
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start <= last.end {
			last.end = max(last.end, s.end)
			continue
		}
		merged = append(merged, s)
	}

	var sb strings.Builder
	prev := 0
	for _, s := range merged {
		sb.WriteString(text[prev:s.start])
		sb.WriteString(r.mask)
		prev = s.end
	}
	sb.WriteString(text[prev:])
	return sb.String()
}
