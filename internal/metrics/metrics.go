package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
)

// Stage names used for latency and error labels.
const (
	StageRetrieval = "retrieval"
	StageGate      = "gate"
	StageLLM       = "llm"
	StageRecord    = "record"
	StageTotal     = "total"
)

// #region metrics
// Metrics holds the decision-layer collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	decisions     *prometheus.CounterVec
	shortCircuits *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	evalFailures  prometheus.Counter
	topScore      prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "decision",
			Name:      "total",
			Help:      "Final decisions by mode and reason",
		}, []string{"mode", "reason"}),

		shortCircuits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "gate",
			Name:      "short_circuit_total",
			Help:      "Turns answered by the gate without a model call, by reason",
		}, []string{"reason"}),

		stageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage",
			Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),

		stageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "pipeline",
			Name:      "stage_errors_total",
			Help:      "Collaborator failures absorbed by the pipeline, by stage",
		}, []string{"stage"}),

		evalFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "rag",
			Subsystem: "eval",
			Name:      "failures_total",
			Help:      "Envelopes that failed invariant checks",
		}),

		topScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rag",
			Subsystem: "retrieval",
			Name:      "top_score",
			Help:      "Top retrieval score per turn",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
}

// #endregion metrics

// #region observe
// ObserveDecision counts a final decision.
func (m *Metrics) ObserveDecision(d gate.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(d.Mode), string(d.Reason)).Inc()
}

// ObserveShortCircuit counts a gate decision that skipped the model.
func (m *Metrics) ObserveShortCircuit(d gate.Decision) {
	if m == nil {
		return
	}
	m.shortCircuits.WithLabelValues(string(d.Reason)).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveError counts an absorbed collaborator failure.
func (m *Metrics) ObserveError(stage string) {
	if m == nil {
		return
	}
	m.stageErrors.WithLabelValues(stage).Inc()
}

// ObserveEvalFailure counts an envelope that failed validation.
func (m *Metrics) ObserveEvalFailure() {
	if m == nil {
		return
	}
	m.evalFailures.Inc()
}

// ObserveTopScore records the turn's top retrieval score.
func (m *Metrics) ObserveTopScore(score float64) {
	if m == nil {
		return
	}
	m.topScore.Observe(score)
}

// #endregion observe
