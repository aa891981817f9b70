package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/eval"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/metrics"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region collaborators
// Searcher returns ranked knowledge-base hits for a question.
type Searcher interface {
	Search(ctx context.Context, question string, topK int) (retrieval.Result, error)
}

// Generator returns the model's raw completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder persists a completed envelope.
type Recorder interface {
	Record(ctx context.Context, env *envelope.Envelope) error
}

// #endregion collaborators

// #region config
// Config holds the read-only thresholds and labels of a pipeline.
type Config struct {
	Gate           gate.Config
	Answer         answer.Config
	Eval           eval.EvalConfig
	TopK           int
	ChatModel      string
	EmbeddingModel string
}

// DefaultConfig returns the production pipeline configuration.
func DefaultConfig() Config {
	return Config{
		Gate:   gate.DefaultConfig(),
		Answer: answer.DefaultConfig(),
		Eval:   eval.DefaultEvalConfig(),
		TopK:   retrieval.DefaultConfig().TopK,
	}
}

// Deps are the pipeline's collaborators. Searcher and Generator are required;
// the rest may be nil.
type Deps struct {
	Searcher  Searcher
	Generator Generator
	Recorder  Recorder
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Clock     func() time.Time
	NewID     func() string
}

// #endregion config
