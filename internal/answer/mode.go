package answer

import (
	"strings"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
)

// NormalizeMode maps the model's declared intent onto a decision mode.
// Matching is case-insensitive after trimming. The second result is false for
// anything unrecognized, including non-string values.
func NormalizeMode(v any) (gate.Mode, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ANSWER", "ALLOW":
		return gate.ModeAllow, true
	case "CLARIFY":
		return gate.ModeClarify, true
	case "NO_ANSWER", "NOANSWER", "NO-ANSWER":
		return gate.ModeNoAnswer, true
	default:
		return "", false
	}
}
