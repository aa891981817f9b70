package replay

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region types
// Case is one recorded turn to replay. Raw is the model completion captured at
// decision time; it is empty when the gate short-circuited. Thresholds and
// OverrideScore are the values the turn was decided under; nil falls back to
// the ReplayConfig.
type Case struct {
	RequestID     string
	Question      string
	Thresholds    *gate.Config
	OverrideScore *float64
	Hits          []retrieval.Hit
	TopScore      *float64
	ModelCalled   bool
	Raw           string
	ContextText   string
	Expected      Expectation
}

// Expectation is the decision and cited chunk ids a case should reproduce.
type Expectation struct {
	Decision gate.Decision `json:"decision"`
	Sources  []string      `json:"sources"`
}

// ReplayConfig holds the thresholds a replay run decides with. Gate and
// Answer apply to cases that carry no thresholds of their own; Overrides
// apply to every case.
type ReplayConfig struct {
	Gate      gate.Config
	Answer    answer.Config
	Overrides Overrides
	Workers   int // concurrent cases, 0 = one per case
}

// Overrides replace single thresholds for a what-if run. Nil fields keep the
// recorded value.
type Overrides struct {
	TAllow        *float64
	TClarify      *float64
	OverrideScore *float64
}

// DefaultReplayConfig returns the production thresholds.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Gate:    gate.DefaultConfig(),
		Answer:  answer.DefaultConfig(),
		Workers: 8,
	}
}

// ReplayResult is the outcome of replaying one case.
type ReplayResult struct {
	RequestID string
	Actual    Expectation
	Expected  Expectation
	Match     bool
	Diff      string // (-expected +actual), empty on match

	// ModelMissing is set when the replayed gate allows a turn whose model was
	// never called, so the assembler saw an empty completion.
	ModelMissing bool
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalCases   int
	Matched      int
	Mismatched   int
	ModelMissing int
	ByMode       map[gate.Mode]int
	ByReason     map[gate.Reason]int
}

// #endregion types

// #region from-record
// CaseFromRecord turns a logged decision into a replay case expecting the
// logged outcome.
func CaseFromRecord(rec logging.DecisionRecord) Case {
	c := Case{
		RequestID:   rec.RequestID,
		Question:    rec.Question,
		Hits:        rec.Hits,
		TopScore:    rec.TopScore,
		ModelCalled: rec.ModelCalled,
		Raw:         rec.Raw,
		ContextText: rec.ContextText,
		Expected: Expectation{
			Decision: rec.Decision,
			Sources:  sourceIDs(rec.Sources),
		},
	}
	if rec.Thresholds != (gate.Config{}) {
		thresholds, override := rec.Thresholds, rec.OverrideScore
		c.Thresholds = &thresholds
		c.OverrideScore = &override
	}
	return c
}

// #endregion from-record

// #region replay
// Replay re-decides every case with the gate and assembler: gate, then
// assemble over the recorded completion, then compare against the expectation.
// Each case is decided under its own recorded thresholds unless overridden.
// No retrieval or model call is made. Results keep the order of cases.
func Replay(ctx context.Context, cases []Case, config ReplayConfig) ([]ReplayResult, error) {
	results := make([]ReplayResult, len(cases))

	eg, ctx := errgroup.WithContext(ctx)
	if config.Workers > 0 {
		eg.SetLimit(config.Workers)
	}
	for i := range cases {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("replay %s: %w", cases[i].RequestID, err)
			}
			results[i] = replayOne(config, cases[i])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// thresholds resolves the gate and assembler config a case is replayed with.
func (config ReplayConfig) thresholds(c Case) (gate.Config, answer.Config) {
	gateConfig, answerConfig := config.Gate, config.Answer
	if c.Thresholds != nil {
		gateConfig = *c.Thresholds
	}
	if c.OverrideScore != nil {
		answerConfig.OverrideScore = *c.OverrideScore
	}

	o := config.Overrides
	if o.TAllow != nil {
		gateConfig.TAllow = *o.TAllow
	}
	if o.TClarify != nil {
		gateConfig.TClarify = *o.TClarify
	}
	if o.OverrideScore != nil {
		answerConfig.OverrideScore = *o.OverrideScore
	}
	return gateConfig, answerConfig
}

func replayOne(config ReplayConfig, c Case) ReplayResult {
	gateConfig, answerConfig := config.thresholds(c)
	g := gate.NewGate(gateConfig)
	assembler := answer.NewAssembler(answerConfig)

	hits := c.Hits
	if hits == nil {
		hits = []retrieval.Hit{}
	}
	top := retrieval.Result{Hits: hits, TopScore: c.TopScore}.TopScoreOrFirst()
	verdict := g.Evaluate(len(hits), top)

	contextText := c.ContextText
	if verdict.Decision.Allowed() && contextText == "" {
		contextText = retrieval.FormatContext(hits)
	}

	res := assembler.Assemble(answer.Input{
		Gate:        verdict.Decision,
		Hits:        hits,
		TopScore:    c.TopScore,
		Raw:         c.Raw,
		ContextText: contextText,
	})

	actual := Expectation{Decision: res.Decision, Sources: sourceIDs(res.Sources)}
	expected := c.Expected
	if expected.Sources == nil {
		expected.Sources = []string{}
	}
	diff := cmp.Diff(expected, actual)

	return ReplayResult{
		RequestID:    c.RequestID,
		Actual:       actual,
		Expected:     expected,
		Match:        diff == "",
		Diff:         diff,
		ModelMissing: verdict.Decision.Allowed() && !c.ModelCalled,
	}
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		TotalCases: len(results),
		ByMode:     make(map[gate.Mode]int),
		ByReason:   make(map[gate.Reason]int),
	}
	for _, r := range results {
		if r.Match {
			s.Matched++
		} else {
			s.Mismatched++
		}
		if r.ModelMissing {
			s.ModelMissing++
		}
		s.ByMode[r.Actual.Decision.Mode]++
		s.ByReason[r.Actual.Decision.Reason]++
	}
	return s
}

// #endregion replay

func sourceIDs(sources []answer.Source) []string {
	ids := make([]string, len(sources))
	for i, s := range sources {
		ids[i] = s.ChunkID
	}
	return ids
}
