package eval

import (
	"fmt"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
)

// #region eval-harness
// EvalHarness validates a completed envelope before it is delivered.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks the decision and output invariants of env. It never mutates env.
func (h *EvalHarness) Run(env *envelope.Envelope) EvalResult {
	var checks []EvalCheck
	passed := true
	var failReasons []string

	record := func(name string, ok bool, detail string) {
		checks = append(checks, EvalCheck{Name: name, Pass: ok, Detail: detail})
		if !ok {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("%s: %s", name, detail))
		}
	}

	mode := env.Decision.Mode
	out := env.Output

	// 1. Reason belongs to the mode's vocabulary
	record("decision_vocabulary", env.Decision.Reason.Valid(mode),
		fmt.Sprintf("reason %q not valid for mode %q", env.Decision.Reason, mode))

	// 2. Sources only with ALLOW
	record("sources_only_on_allow", len(out.Sources) == 0 || mode == gate.ModeAllow,
		fmt.Sprintf("%d sources on %s", len(out.Sources), mode))

	// 3. Clarify only with CLARIFY, and never empty there
	record("clarify_only_on_clarify", len(out.Clarify) == 0 || mode == gate.ModeClarify,
		fmt.Sprintf("%d clarify questions on %s", len(out.Clarify), mode))
	if mode == gate.ModeClarify {
		record("clarify_present", len(out.Clarify) > 0, "clarification without questions")
	}

	// 4. Every source is a retrieval hit
	hits := make(map[string]bool, len(env.Retrieval.Hits))
	for _, hit := range env.Retrieval.Hits {
		hits[hit.ChunkID] = true
	}
	var missing []string
	for _, s := range out.Sources {
		if !hits[s.ChunkID] {
			missing = append(missing, s.ChunkID)
		}
	}
	record("sources_in_hits", len(missing) == 0, fmt.Sprintf("unknown chunk ids %v", missing))

	// 5. Source cap
	record("sources_capped", len(out.Sources) <= h.config.MaxSources,
		fmt.Sprintf("%d sources exceeds %d", len(out.Sources), h.config.MaxSources))

	// 6. ALLOW carries an answer
	if mode == gate.ModeAllow {
		record("answer_present", out.AnswerText != "", "empty answer on ALLOW")

		// Uncited answers are informational unless configured otherwise
		cited := len(out.Sources) > 0
		if h.config.RequireSourcesOnAllow {
			record("answer_cited", cited, "ALLOW without sources")
		} else {
			checks = append(checks, EvalCheck{Name: "answer_cited", Pass: cited})
		}
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	for i := range checks {
		if checks[i].Pass {
			checks[i].Detail = ""
		}
	}

	return EvalResult{
		Passed: passed,
		Checks: checks,
		Reason: reason,
	}
}

// #endregion eval-harness
