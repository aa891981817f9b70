package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/codec"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/config"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/llm"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/metrics"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/pipeline"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/server"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/session"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/store"
)

// #region main
func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	envFile := flag.String("env", ".env", "path to .env file (ignored when missing)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

// #endregion main

// #region wiring
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	// Knowledge service
	kb, err := codec.NewClient(cfg.Knowledge.Addr)
	if err != nil {
		return fmt.Errorf("connect knowledge service at %s: %w", cfg.Knowledge.Addr, err)
	}
	defer kb.Close()

	generator, err := newGenerator(ctx, cfg, kb)
	if err != nil {
		return err
	}

	// Answer log
	var recorder pipeline.Recorder
	var records server.Records
	if cfg.Store.Path != "" {
		st, err := store.NewStore(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		recorder, records = st, st
	}

	sessions, err := session.New(cfg.Session.Size)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p := pipeline.New(pipeline.Config{
		Gate:           cfg.Gate,
		Answer:         cfg.Answer,
		Eval:           pipeline.DefaultConfig().Eval,
		TopK:           cfg.Retrieval.TopK,
		ChatModel:      cfg.LLM.Model,
		EmbeddingModel: cfg.Knowledge.EmbeddingModel,
	}, pipeline.Deps{
		Searcher:  retrieval.NewRetriever(kb, cfg.Retrieval),
		Generator: generator,
		Recorder:  recorder,
		Logger:    logger,
		Metrics:   metrics.New(reg),
	})

	logger.Info("rag assistant ready",
		zap.String("addr", cfg.Server.Addr),
		zap.String("knowledge", cfg.Knowledge.Addr),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("store", cfg.Store.Path),
		zap.Float64("t_clarify", cfg.Gate.TClarify),
		zap.Float64("t_allow", cfg.Gate.TAllow),
	)

	srv := server.New(cfg.Server, server.Deps{
		Handler:  p,
		Sessions: sessions,
		Records:  records,
		Gatherer: reg,
		Logger:   logger,
	})
	return srv.Run(ctx)
}

func newGenerator(ctx context.Context, cfg config.Config, kb *codec.Client) (pipeline.Generator, error) {
	switch cfg.LLM.Provider {
	case config.ProviderKnowledge:
		return llm.NewKnowledge(kb, cfg.LLM.Model), nil
	default:
		g, err := llm.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return g, nil
	}
}

// #endregion wiring
