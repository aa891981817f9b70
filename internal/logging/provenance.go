package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/envelope"
)

// #region log-decision
// LogDecision writes an answer entry to the answer_log table.
func LogDecision(ctx context.Context, db *sql.DB, entry AnswerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO answer_log (id, request_id, chat_id, user_id, question, mode, reason, top_score,
		                         hits_count, sources_json, error_stage, error_message, total_ms, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.RequestID,
		nullIfNil(entry.ChatID),
		entry.UserID,
		entry.Question,
		entry.Mode,
		entry.Reason,
		nullIfNil(entry.TopScore),
		entry.HitsCount,
		nullIfEmpty(entry.SourcesJSON),
		nullIfEmpty(entry.ErrorStage),
		nullIfEmpty(entry.ErrorMessage),
		entry.TotalMS,
		entry.RecordJSON,
		entry.CreatedAt.UTC().Format(envelope.TimestampLayout),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region from-envelope
// NewDecisionRecord snapshots the replayable part of a completed envelope.
func NewDecisionRecord(env *envelope.Envelope) DecisionRecord {
	return DecisionRecord{
		RequestID:     env.Meta.RequestID,
		Question:      env.Input.Question,
		Hits:          env.Retrieval.Hits,
		TopScore:      env.Retrieval.TopScore,
		Thresholds:    env.Trace.Thresholds,
		OverrideScore: env.Trace.OverrideScore,
		ModelCalled:   env.Trace.ModelCalled,
		Raw:           env.Trace.Raw,
		ContextText:   env.Trace.ContextText,
		Decision:      env.Decision,
		AnswerText:    env.Output.AnswerText,
		Clarify:       env.Output.Clarify,
		Sources:       env.Output.Sources,
	}
}

// NewAnswerEntry builds the answer_log row for a completed envelope.
func NewAnswerEntry(env *envelope.Envelope) (AnswerEntry, error) {
	record, err := json.Marshal(NewDecisionRecord(env))
	if err != nil {
		return AnswerEntry{}, fmt.Errorf("marshal decision record: %w", err)
	}

	var sourcesJSON string
	if len(env.Output.Sources) > 0 {
		b, err := json.Marshal(env.Output.Sources)
		if err != nil {
			return AnswerEntry{}, fmt.Errorf("marshal sources: %w", err)
		}
		sourcesJSON = string(b)
	}

	entry := AnswerEntry{
		RequestID:   env.Meta.RequestID,
		ChatID:      env.Meta.ChatID,
		UserID:      env.Input.UserID,
		Question:    env.Input.Question,
		Mode:        string(env.Decision.Mode),
		Reason:      string(env.Decision.Reason),
		TopScore:    env.Retrieval.TopScore,
		HitsCount:   len(env.Retrieval.Hits),
		SourcesJSON: sourcesJSON,
		TotalMS:     env.Timers.TotalMS,
		RecordJSON:  string(record),
	}
	if env.Error != nil {
		entry.ErrorStage = env.Error.Stage
		entry.ErrorMessage = env.Error.Message
	}
	if ts, err := time.Parse(time.RFC3339, env.Meta.TS); err == nil {
		entry.CreatedAt = ts.UTC()
	}
	return entry, nil
}

// #endregion from-envelope

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfNil[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// #endregion helpers
