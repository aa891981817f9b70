package gate

// #region messages
const (
	// ClarifyMessage is shown when retrieval found something related but not enough to answer.
	ClarifyMessage = "I found partially relevant info in the knowledge base, but I need a bit more detail to answer.\n\n" +
		"What to clarify:\n" +
		"- Which exact section/process are you referring to (function/page/step name)?\n" +
		"- Which system/integration is this about (if there are multiple)?"

	// NoAnswerMessage is shown when retrieval found nothing usable.
	NoAnswerMessage = "I couldn't find an answer in the knowledge base for this question.\n\n" +
		"What you can do:\n" +
		"- Rephrase the question\n" +
		"- Add 1-2 details (feature/section name, error code, step in the process)"
)

// #endregion messages

// #region gate
// Gate decides from retrieval signal alone whether a turn may reach the model.
type Gate struct {
	config Config
}

// NewGate creates a gate with the given configuration.
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Config returns the thresholds the gate was built with.
func (g *Gate) Config() Config {
	return g.config
}

// Evaluate checks the hit count first, then the top score against TAllow and
// TClarify. Comparisons are inclusive, so a score equal to a threshold takes the
// higher-confidence branch. NaN fails every comparison.
func (g *Gate) Evaluate(hitsCount int, topScore float64) Result {
	var d Decision
	switch {
	case hitsCount < g.config.MinHits:
		d = Decision{Mode: ModeNoAnswer, Reason: ReasonNoHits}
	case topScore >= g.config.TAllow:
		d = Decision{Mode: ModeAllow, Reason: ReasonOK}
	case topScore >= g.config.TClarify:
		d = Decision{Mode: ModeClarify, Reason: ReasonLowConfidence}
	default:
		d = Decision{Mode: ModeNoAnswer, Reason: ReasonLowSimilarity}
	}
	return Result{Decision: d, Message: MessageFor(d.Mode)}
}

// Decide is a convenience wrapper for a one-off evaluation.
func Decide(hitsCount int, topScore *float64, config Config) Result {
	var score float64
	if topScore != nil {
		score = *topScore
	}
	return NewGate(config).Evaluate(hitsCount, score)
}

// #endregion gate

// #region helpers
// MessageFor returns the canned fallback text for a mode.
func MessageFor(m Mode) string {
	switch m {
	case ModeClarify:
		return ClarifyMessage
	case ModeNoAnswer:
		return NoAnswerMessage
	default:
		return ""
	}
}

// #endregion helpers
