package faq

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sente-labs/chatstore/internal/metrics"
)

// Admission holds the cache-worthiness rules: a minimum answer length plus
// phrase lists that mark an answer as an error message or as containing
// personal data. Matching is case-insensitive substring search.
type Admission struct {
	MinAnswerLength    int
	ErrorIndicators    []string
	PersonalIndicators []string
}

// Check decides whether an answer belongs in the shared FAQ cache. It returns
// the admission category and, for rejections, a human-readable reason.
func (a Admission) Check(answer string) (metrics.AdmissionResult, string) {
	trimmed := strings.TrimSpace(answer)
	if utf8.RuneCountInString(trimmed) < a.MinAnswerLength {
		return metrics.AdmissionTooShort,
			fmt.Sprintf("answer shorter than %d characters", a.MinAnswerLength)
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range a.ErrorIndicators {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return metrics.AdmissionErrorIndicator,
				fmt.Sprintf("answer looks like an error message (%q)", phrase)
		}
	}
	for _, phrase := range a.PersonalIndicators {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return metrics.AdmissionPersonalData,
				fmt.Sprintf("answer references personal data (%q)", phrase)
		}
	}
	return metrics.AdmissionStored, ""
}
