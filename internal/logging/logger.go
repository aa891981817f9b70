package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
)

// #region logger
// NewLogger builds the process logger. level is a zap level name ("debug",
// "info", ...); jsonFormat selects JSON over console encoding.
func NewLogger(level string, jsonFormat bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !jsonFormat {
		config.Encoding = "console"
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// #endregion logger

// #region fields
// DecisionFields are the structured fields logged for every completed turn.
func DecisionFields(env *envelope.Envelope) []zap.Field {
	fields := []zap.Field{
		zap.String("request_id", env.Meta.RequestID),
		zap.String("user_id", env.Input.UserID),
		zap.String("mode", string(env.Decision.Mode)),
		zap.String("reason", string(env.Decision.Reason)),
		zap.Int("hits", len(env.Retrieval.Hits)),
		zap.Int("sources", len(env.Output.Sources)),
		zap.Bool("model_called", env.Trace.ModelCalled),
		zap.Int64("retrieval_ms", env.Timers.RetrievalMS),
		zap.Int64("gate_ms", env.Timers.GateMS),
		zap.Int64("llm_ms", env.Timers.LLMMS),
		zap.Int64("total_ms", env.Timers.TotalMS),
	}
	if env.Meta.ChatID != nil {
		fields = append(fields, zap.Int64("chat_id", *env.Meta.ChatID))
	}
	if env.Retrieval.TopScore != nil {
		fields = append(fields, zap.Float64("top_score", *env.Retrieval.TopScore))
	}
	if env.Error != nil {
		fields = append(fields, zap.String("error_stage", env.Error.Stage), zap.String("error", env.Error.Message))
	}
	return fields
}

// #endregion fields
