package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
)

func TestObserveDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDecision(gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK})
	m.ObserveDecision(gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK})
	m.ObserveDecision(gate.Decision{Mode: gate.ModeClarify, Reason: gate.ReasonLLMParseError})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("ALLOW", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("CLARIFY", "llm_parse_error")))
}

func TestObserveCountersAndHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveShortCircuit(gate.Decision{Mode: gate.ModeNoAnswer, Reason: gate.ReasonNoHits})
	m.ObserveError(StageRetrieval)
	m.ObserveEvalFailure()
	m.ObserveStage(StageLLM, 120*time.Millisecond)
	m.ObserveTopScore(0.73)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.shortCircuits.WithLabelValues("no_hits")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageErrors.WithLabelValues("retrieval")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evalFailures))

	expected := `
# HELP rag_eval_failures_total Envelopes that failed invariant checks
# TYPE rag_eval_failures_total counter
rag_eval_failures_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "rag_eval_failures_total"))

	count, err := testutil.GatherAndCount(reg, "rag_pipeline_stage_latency_seconds", "rag_retrieval_top_score")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision(gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK})
		m.ObserveShortCircuit(gate.Decision{})
		m.ObserveStage(StageTotal, time.Second)
		m.ObserveError(StageRecord)
		m.ObserveEvalFailure()
		m.ObserveTopScore(1)
	})
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
