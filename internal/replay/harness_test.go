package replay

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// helper: one hit with passage text.
func hit(n int, id string, score float64) retrieval.Hit {
	return retrieval.Hit{N: n, ChunkID: id, Doc: "Doc", Section: "S", Score: score, Text: "Passage " + id + "."}
}

func ptr(f float64) *float64 { return &f }

// helper: logged decisions as the store would return them.
func sampleRecords() []logging.DecisionRecord {
	thresholds := gate.Config{MinHits: 1, TClarify: 0.4, TAllow: 0.5}
	return []logging.DecisionRecord{
		{
			RequestID:     "r1",
			Hits:          []retrieval.Hit{hit(1, "a", 0.9), hit(2, "b", 0.6)},
			TopScore:      ptr(0.9),
			Thresholds:    thresholds,
			OverrideScore: 0.5,
			ModelCalled:   true,
			Raw:           `{"mode":"ALLOW","answer":"Ok","sources":["b"]}`,
			Decision:      gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK},
			Sources:       []answer.Source{{N: 2, ChunkID: "b", Score: 0.6}},
		},
		{
			RequestID:  "r2",
			Hits:       []retrieval.Hit{hit(1, "a", 0.45)},
			TopScore:   ptr(0.45),
			Thresholds: thresholds,
			Decision:   gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonLowConfidence},
			Sources:    []answer.Source{},
		},
	}
}

// 1. Recorded ALLOW reproduces with the same sources.
func TestReplay_MatchesRecordedAllow(t *testing.T) {
	cases := []Case{CaseFromRecord(sampleRecords()[0])}
	config := DefaultReplayConfig()

	results, err := Replay(context.Background(), cases, config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	r := results[0]
	if !r.Match {
		t.Errorf("expected match, diff:\n%s", r.Diff)
	}
	if r.Actual.Decision.Mode != gate.ModeAllow {
		t.Errorf("expected ALLOW, got %s", r.Actual.Decision.Mode)
	}
	if r.ModelMissing {
		t.Error("expected model to be recorded as called")
	}
}

// 2. Tighter thresholds turn a recorded ALLOW into a clarification.
func TestReplay_ThresholdDrift(t *testing.T) {
	rec := sampleRecords()[0]
	rec.Hits = []retrieval.Hit{hit(1, "a", 0.55)}
	rec.TopScore = ptr(0.55)
	rec.Sources = []answer.Source{{N: 1, ChunkID: "a", Score: 0.55}}
	rec.Raw = `{"mode":"ALLOW","answer":"Ok","sources":[1]}`

	config := DefaultReplayConfig()
	config.Overrides.TAllow = ptr(0.6)

	results, err := Replay(context.Background(), []Case{CaseFromRecord(rec)}, config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	r := results[0]
	if r.Match {
		t.Fatal("expected drift under stricter t_allow")
	}
	want := gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonLowConfidence}
	if r.Actual.Decision != want {
		t.Errorf("expected %+v, got %+v", want, r.Actual.Decision)
	}
	if r.Diff == "" {
		t.Error("expected a diff on mismatch")
	}
}

// 3. Looser thresholds allow a turn that never reached the model.
func TestReplay_ModelMissing(t *testing.T) {
	rec := sampleRecords()[1]
	config := DefaultReplayConfig()
	config.Overrides.TAllow = ptr(0.4)

	results, err := Replay(context.Background(), []Case{CaseFromRecord(rec)}, config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !results[0].ModelMissing {
		t.Error("expected ModelMissing when the gate newly allows an unanswered turn")
	}
}

// 4. Turns logged under different thresholds each replay under their own.
func TestReplay_PerRecordThresholds(t *testing.T) {
	defaults := logging.DecisionRecord{
		RequestID:     "before-change",
		Hits:          []retrieval.Hit{hit(1, "a", 0.50)},
		TopScore:      ptr(0.50),
		Thresholds:    gate.DefaultConfig(),
		OverrideScore: 0.5,
		Decision:      gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonLowConfidence},
	}
	stricter := logging.DecisionRecord{
		RequestID:     "after-change",
		Hits:          []retrieval.Hit{hit(1, "a", 0.50)},
		TopScore:      ptr(0.50),
		Thresholds:    gate.Config{MinHits: 1, TClarify: 0.6, TAllow: 0.7},
		OverrideScore: 0.5,
		Decision:      gate.Decision{Mode: gate.ModeNoAnswer, Reason: gate.ReasonLowSimilarity},
	}

	f := FixtureFromRecords("threshold change", []logging.DecisionRecord{defaults, stricter})
	results, err := Replay(context.Background(), f.ReplayCases(), f.Config.ToReplayConfig())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, r := range results {
		if !r.Match {
			t.Errorf("%s: expected match under recorded thresholds, diff:\n%s", r.RequestID, r.Diff)
		}
	}

	// An explicit override still applies to every case.
	config := f.Config.ToReplayConfig()
	config.Overrides.TClarify = ptr(0.45)
	results, err = Replay(context.Background(), f.ReplayCases(), config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if !results[0].Match {
		t.Errorf("before-change: expected match, diff:\n%s", results[0].Diff)
	}
	if results[1].Match {
		t.Error("after-change: expected drift under t_clarify override")
	}
}

// 5. Results keep input order under concurrency.
func TestReplay_PreservesOrder(t *testing.T) {
	cases := make([]Case, 50)
	for i := range cases {
		cases[i] = Case{
			RequestID: fmt.Sprintf("case-%02d", i),
			Expected:  Expectation{Decision: gate.Decision{Mode: gate.ModeNoAnswer, Reason: gate.ReasonNoHits}},
		}
	}
	config := DefaultReplayConfig()
	config.Workers = 4

	results, err := Replay(context.Background(), cases, config)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for i, r := range results {
		if r.RequestID != cases[i].RequestID {
			t.Fatalf("result %d: expected %s, got %s", i, cases[i].RequestID, r.RequestID)
		}
		if !r.Match {
			t.Errorf("%s: unexpected diff:\n%s", r.RequestID, r.Diff)
		}
	}
}

// 6. A cancelled context aborts the run.
func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Replay(ctx, []Case{{RequestID: "x"}}, DefaultReplayConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// 7. Summarize counts matches, modes and reasons.
func TestSummarize(t *testing.T) {
	results := []ReplayResult{
		{Match: true, Actual: Expectation{Decision: gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK}}},
		{Match: true, Actual: Expectation{Decision: gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonLLMOverrideHigh}}},
		{Match: false, ModelMissing: true, Actual: Expectation{Decision: gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonLLMParseError}}},
	}

	s := Summarize(results)
	if s.TotalCases != 3 || s.Matched != 2 || s.Mismatched != 1 || s.ModelMissing != 1 {
		t.Errorf("unexpected totals: %+v", s)
	}
	if s.ByMode[gate.ModeAllow] != 2 {
		t.Errorf("expected 2 ALLOW, got %d", s.ByMode[gate.ModeAllow])
	}
	if s.ByReason[gate.ReasonLLMParseError] != 1 {
		t.Errorf("expected 1 llm_parse_error, got %d", s.ByReason[gate.ReasonLLMParseError])
	}
}
