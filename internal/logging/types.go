package logging

import (
	"time"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region answer-entry
// AnswerEntry is a single row in the answer_log table.
type AnswerEntry struct {
	ID           string
	RequestID    string
	ChatID       *int64
	UserID       string
	Question     string
	Mode         string // "ALLOW" | "CLARIFY" | "NO_ANSWER"
	Reason       string
	TopScore     *float64
	HitsCount    int
	SourcesJSON  string
	ErrorStage   string
	ErrorMessage string
	TotalMS      int64
	RecordJSON   string
	CreatedAt    time.Time
}

// #endregion answer-entry

// #region decision-record
// DecisionRecord captures the complete decision inputs and outputs for a
// single turn. Serialized as JSON into answer_log.record_json for
// deterministic replay.
type DecisionRecord struct {
	RequestID string `json:"request_id"`
	Question  string `json:"question"`

	// Retrieval as seen by the gate
	Hits     []retrieval.Hit `json:"hits"`
	TopScore *float64        `json:"top_score"`

	// Thresholds active at decision time
	Thresholds    gate.Config `json:"thresholds"`
	OverrideScore float64     `json:"override_score"`

	// Model exchange, empty when the gate short-circuited
	ModelCalled bool   `json:"model_called"`
	Raw         string `json:"raw"`
	ContextText string `json:"context_text"`

	// Final output
	Decision   gate.Decision   `json:"decision"`
	AnswerText string          `json:"answer_text"`
	Clarify    []string        `json:"clarify"`
	Sources    []answer.Source `json:"sources"`
}

// #endregion decision-record
