package gate

// #region mode
// Mode is the decision outcome for one turn.
type Mode string

const (
	ModeAllow    Mode = "ALLOW"
	ModeClarify  Mode = "CLARIFY"
	ModeNoAnswer Mode = "NO_ANSWER"
)

// #endregion mode

// #region reason
// Reason is the machine-readable code that accompanies a Mode.
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonNoHits          Reason = "no_hits"
	ReasonLowConfidence   Reason = "low_confidence"
	ReasonLowSimilarity   Reason = "low_similarity"
	ReasonLLMParseError   Reason = "llm_parse_error"
	ReasonLLMEmptyAnswer  Reason = "llm_empty_answer"
	ReasonLLMOverrideHigh Reason = "llm_override_high_score"
)

var reasonsByMode = map[Mode][]Reason{
	ModeAllow:    {ReasonOK, ReasonLLMOverrideHigh},
	ModeClarify:  {ReasonLowConfidence, ReasonLLMParseError, ReasonLLMEmptyAnswer, ReasonOK},
	ModeNoAnswer: {ReasonNoHits, ReasonLowSimilarity, ReasonOK},
}

// Valid reports whether r belongs to the vocabulary of mode m.
func (r Reason) Valid(m Mode) bool {
	for _, allowed := range reasonsByMode[m] {
		if r == allowed {
			return true
		}
	}
	return false
}

// #endregion reason

// #region decision
// Decision pairs a mode with its reason. Both are always set together.
type Decision struct {
	Mode   Mode   `json:"mode"`
	Reason Reason `json:"reason"`
}

// Allowed reports whether the decision lets the turn proceed to the model.
func (d Decision) Allowed() bool {
	return d.Mode == ModeAllow
}

// #endregion decision

// #region gate-config
// Config holds the retrieval thresholds for the confidence gate.
// Conventionally 0 <= TClarify <= TAllow <= 1.
type Config struct {
	MinHits  int     `yaml:"min_hits" json:"min_hits"`   // fewer hits than this is NO_ANSWER
	TClarify float64 `yaml:"t_clarify" json:"t_clarify"` // lowest top score that earns a clarification
	TAllow   float64 `yaml:"t_allow" json:"t_allow"`     // lowest top score that lets the model answer
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinHits:  1,
		TClarify: 0.46,
		TAllow:   0.52,
	}
}

// #endregion gate-config

// #region gate-result
// Result is the output of a gate evaluation. Message carries the canned
// user-facing text for non-ALLOW decisions and is empty otherwise.
type Result struct {
	Decision Decision
	Message  string
}

// #endregion gate-result
