package envelope

import (
	"encoding/json"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region defaults
const (
	DefaultChannel        = "telegram"
	DefaultPromptVersion  = "v1"
	DefaultChatModel      = "n/a"
	DefaultEmbeddingModel = "n/a"
	UnknownUser           = "unknown"
)

// TimestampLayout is RFC 3339 in UTC with fixed millisecond precision, so
// formatted timestamps sort lexically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// #endregion defaults

// #region envelope
// Envelope is the per-request record carried through the pipeline and handed
// to the channel adapter. Every field has a safe value from construction on.
type Envelope struct {
	Meta      Meta             `json:"meta"`
	Input     Input            `json:"input"`
	Channel   json.RawMessage  `json:"telegram"`
	Retrieval retrieval.Result `json:"retrieval"`
	Decision  gate.Decision    `json:"decision"`
	Output    Output           `json:"output"`
	Error     *ErrorInfo       `json:"error"`
	Timers    Timers           `json:"timers"`
	Trace     Trace            `json:"trace"`
}

// Meta identifies the request and the models serving it.
type Meta struct {
	RequestID      string `json:"request_id"`
	TS             string `json:"ts"`
	Channel        string `json:"channel"`
	PromptVersion  string `json:"prompt_version"`
	ChatModel      string `json:"chat_model"`
	EmbeddingModel string `json:"embedding_model"`
	ChatID         *int64 `json:"chat_id"`
}

// Input is the user's side of the turn.
type Input struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

// Output is what the channel adapter renders.
type Output struct {
	AnswerText string          `json:"answer_text"`
	Clarify    []string        `json:"clarify"`
	Sources    []answer.Source `json:"sources"`
}

// ErrorInfo records the first collaborator failure of the request.
type ErrorInfo struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Timers holds stage durations in milliseconds. StartMS is a Unix timestamp.
type Timers struct {
	StartMS     int64 `json:"t_start_ms"`
	RetrievalMS int64 `json:"retrieval_ms"`
	GateMS      int64 `json:"gate_ms"`
	LLMMS       int64 `json:"llm_ms"`
	TotalMS     int64 `json:"total_ms"`
}

// Trace keeps what is needed to replay the decision offline.
type Trace struct {
	Raw           string      `json:"raw"`
	ContextText   string      `json:"context_text"`
	Thresholds    gate.Config `json:"thresholds"`
	OverrideScore float64     `json:"override_score"`
	ModelCalled   bool        `json:"model_called"`
}

// #endregion envelope
