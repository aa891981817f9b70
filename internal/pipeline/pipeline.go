package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/eval"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/llm"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/metrics"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// errEmptyCompletion marks a model call that returned only whitespace.
var errEmptyCompletion = errors.New("empty completion")

// #region pipeline
// Pipeline runs one question through retrieval, the confidence gate, the
// model and the answer assembler. It holds no per-request state and is safe
// for concurrent use.
type Pipeline struct {
	config    Config
	gate      *gate.Gate
	assembler *answer.Assembler
	harness   *eval.EvalHarness
	deps      Deps
	logger    *zap.Logger
}

// New wires a pipeline.
func New(config Config, deps Deps) *Pipeline {
	if config.TopK <= 0 {
		config.TopK = retrieval.DefaultConfig().TopK
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		config:    config,
		gate:      gate.NewGate(config.Gate),
		assembler: answer.NewAssembler(config.Answer),
		harness:   eval.NewEvalHarness(config.Eval),
		deps:      deps,
		logger:    logger,
	}
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// #endregion pipeline

// #region handle
// Handle answers one inbound channel update. It never fails: collaborator
// errors are recorded on the envelope and degrade the decision. Transient
// gRPC failures of the knowledge service are retried first.
func (p *Pipeline) Handle(ctx context.Context, update json.RawMessage) *envelope.Envelope {
	m := p.deps.Metrics
	env := envelope.New(update, envelope.Options{
		Clock:          p.deps.Clock,
		NewID:          p.deps.NewID,
		ChatModel:      p.config.ChatModel,
		EmbeddingModel: p.config.EmbeddingModel,
		TopK:           p.config.TopK,
	})
	env.Trace.Thresholds = p.config.Gate
	env.Trace.OverrideScore = p.config.Answer.OverrideScore
	log := p.logger.With(zap.String("request_id", env.Meta.RequestID))

	// 1. Retrieval
	start := p.deps.Clock()
	res := p.search(ctx, env, log)
	env.Timers.RetrievalMS = p.since(start)
	m.ObserveStage(metrics.StageRetrieval, p.elapsed(start))
	env.SetRetrieval(res)
	if len(env.Retrieval.Hits) > 0 {
		m.ObserveTopScore(env.Retrieval.TopScoreOrFirst())
	}

	// 2. Gate, before any model call
	start = p.deps.Clock()
	verdict := p.gate.Evaluate(len(env.Retrieval.Hits), env.Retrieval.TopScoreOrFirst())
	env.ApplyGate(verdict)
	env.Timers.GateMS = p.since(start)
	m.ObserveStage(metrics.StageGate, p.elapsed(start))

	// 3. Model, only when the gate allows
	if verdict.Decision.Allowed() {
		env.Trace.ContextText = retrieval.FormatContext(env.Retrieval.Hits)
		start = p.deps.Clock()
		env.Trace.Raw = p.generate(ctx, env, log)
		env.Trace.ModelCalled = true
		env.Timers.LLMMS = p.since(start)
		m.ObserveStage(metrics.StageLLM, p.elapsed(start))
	} else {
		m.ObserveShortCircuit(verdict.Decision)
		log.Debug("gate short-circuit",
			zap.String("mode", string(verdict.Decision.Mode)),
			zap.String("reason", string(verdict.Decision.Reason)))
	}

	// 4. Assemble
	env.ApplyAnswer(p.assembler.Assemble(env.AnswerInput()))

	// 5. Validate; violations are reported, never raised
	if result := p.harness.Run(env); !result.Passed {
		m.ObserveEvalFailure()
		log.Error("envelope failed validation",
			zap.String("reason", result.Reason),
			zap.Strings("checks", result.Failed()))
	}

	env.Finish(p.deps.Clock())
	m.ObserveStage(metrics.StageTotal, time.Duration(env.Timers.TotalMS)*time.Millisecond)
	m.ObserveDecision(env.Decision)

	// 6. Record; a failure here does not change what the user sees
	if p.deps.Recorder != nil {
		if err := p.deps.Recorder.Record(context.WithoutCancel(ctx), env); err != nil {
			m.ObserveError(metrics.StageRecord)
			log.Warn("record failed", zap.Error(err))
		}
	}

	p.logger.Info("turn complete", logging.DecisionFields(env)...)
	return env
}

func (p *Pipeline) search(ctx context.Context, env *envelope.Envelope, log *zap.Logger) retrieval.Result {
	empty := retrieval.Result{TopK: p.config.TopK, Hits: []retrieval.Hit{}}
	if env.Input.Question == "" {
		return empty
	}

	res, err := withRetry(ctx, func(ctx context.Context) (retrieval.Result, error) {
		return p.deps.Searcher.Search(ctx, env.Input.Question, p.config.TopK)
	})
	if err != nil {
		env.Fail(metrics.StageRetrieval, err)
		p.deps.Metrics.ObserveError(metrics.StageRetrieval)
		log.Warn("retrieval failed", zap.Error(err))
		return empty
	}
	return res
}

func (p *Pipeline) generate(ctx context.Context, env *envelope.Envelope, log *zap.Logger) string {
	prompt := llm.BuildPrompt(env.Input.Question, env.Trace.ContextText)
	raw, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return p.deps.Generator.Generate(ctx, prompt)
	})
	if err == nil && strings.TrimSpace(raw) == "" {
		err = errEmptyCompletion
	}
	if err != nil {
		env.Fail(metrics.StageLLM, err)
		p.deps.Metrics.ObserveError(metrics.StageLLM)
		log.Warn("model call failed", zap.Error(err))
		return ""
	}
	return raw
}

// #endregion handle

// #region decide
// Decide runs the gate and the assembler over already retrieved hits and an
// already produced completion. When in.Gate is unset the gate is evaluated
// from the hits.
func (p *Pipeline) Decide(in answer.Input) answer.Result {
	if in.Hits == nil {
		in.Hits = []retrieval.Hit{}
	}
	if in.Gate.Mode == "" {
		top := retrieval.Result{Hits: in.Hits, TopScore: in.TopScore}.TopScoreOrFirst()
		in.Gate = p.gate.Evaluate(len(in.Hits), top).Decision
	}
	if in.Gate.Allowed() && in.ContextText == "" {
		in.ContextText = retrieval.FormatContext(in.Hits)
	}
	return p.assembler.Assemble(in)
}

// #endregion decide

// #region helpers
func (p *Pipeline) elapsed(start time.Time) time.Duration {
	return p.deps.Clock().Sub(start)
}

func (p *Pipeline) since(start time.Time) int64 {
	return p.elapsed(start).Milliseconds()
}

// #endregion helpers
