package answer

import (
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region fallbacks
const (
	// EmptyAnswerQuestion replaces an ALLOW answer that came back blank.
	EmptyAnswerQuestion = "What exact access do you need (system/app) and for which role?"

	// EmptyClarifyQuestion is asked when a clarification carries no questions.
	EmptyClarifyQuestion = "What exactly are you trying to do (feature/section), and in which system?"
)

// #endregion fallbacks

// #region config
// Config holds the assembler thresholds.
type Config struct {
	OverrideScore float64 `yaml:"override_score" json:"override_score"` // top score at which a hedging model is overridden
}

// DefaultConfig returns the production override threshold.
func DefaultConfig() Config {
	return Config{OverrideScore: 0.5}
}

// #endregion config

// #region types
// Input is everything the assembler needs for one turn.
type Input struct {
	Gate        gate.Decision
	Hits        []retrieval.Hit
	TopScore    *float64
	Raw         string // raw completion, "" when the model was not called or failed
	ContextText string // retrieval context the prompt was built from
}

// Result is the final decision and user-facing output of a turn.
// Clarify is non-empty only for CLARIFY; PickedHits and Sources only for ALLOW.
type Result struct {
	Decision   gate.Decision
	AnswerText string
	Clarify    []string
	PickedHits []retrieval.Hit
	Sources    []Source
}

// #endregion types

// #region assembler
// Assembler turns a gate decision plus a raw completion into the final answer.
type Assembler struct {
	config Config
}

// NewAssembler creates an assembler with the given config.
func NewAssembler(config Config) *Assembler {
	return &Assembler{config: config}
}

// Assemble runs the decision state machine. It never fails; malformed model
// output becomes a clarification.
//
// A model-declared NO_ANSWER with a blank answer gets gate.NoAnswerMessage
// instead of an empty text.
func (a *Assembler) Assemble(in Input) Result {
	res := Result{
		Clarify:    []string{},
		PickedHits: []retrieval.Hit{},
		Sources:    []Source{},
	}

	if !in.Gate.Allowed() {
		res.Decision = in.Gate
		res.AnswerText = gate.MessageFor(in.Gate.Mode)
		return a.finish(res, nil, in)
	}

	out := ParseModelOutput(in.Raw)
	switch o := out.(type) {
	case AllowOutput:
		res.Decision = gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK}
		res.AnswerText = o.Answer
	case ClarifyOutput:
		res.Decision = gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonOK}
		res.Clarify = o.Questions
	case NoAnswerOutput:
		res.Decision = gate.Decision{Mode: gate.ModeNoAnswer, Reason: gate.ReasonOK}
		res.AnswerText = o.Answer
		if res.AnswerText == "" {
			res.AnswerText = gate.NoAnswerMessage
		}
	default:
		res.Decision = gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonLLMParseError}
	}

	if res.Decision.Mode != gate.ModeAllow && a.shouldOverride(in) {
		if passage := retrieval.TopPassage(in.Hits, in.ContextText); passage != "" {
			res.Decision = gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonLLMOverrideHigh}
			res.AnswerText = passage
			res.Clarify = []string{}
		}
	}

	if res.Decision.Mode == gate.ModeAllow && res.AnswerText == "" {
		res.Decision = gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonLLMEmptyAnswer}
		res.Clarify = []string{EmptyAnswerQuestion}
	}

	return a.finish(res, out, in)
}

func (a *Assembler) shouldOverride(in Input) bool {
	if len(in.Hits) == 0 {
		return false
	}
	return topScore(in) >= a.config.OverrideScore
}

// finish applies the clarify safety net and, for ALLOW, resolves sources.
func (a *Assembler) finish(res Result, out ModelOutput, in Input) Result {
	switch res.Decision.Mode {
	case gate.ModeClarify:
		if len(res.Clarify) == 0 {
			res.Clarify = []string{EmptyClarifyQuestion}
		}
	case gate.ModeAllow:
		res.PickedHits = ResolveCitations(out, res.AnswerText, in.Hits, in.TopScore)
		res.Sources = BuildSources(res.PickedHits)
	}
	return res
}

// #endregion assembler

// #region helpers
func topScore(in Input) float64 {
	if in.TopScore != nil {
		return *in.TopScore
	}
	if len(in.Hits) > 0 {
		return in.Hits[0].Score
	}
	return 0
}

// #endregion helpers
