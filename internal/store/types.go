package store

import (
	"errors"
	"time"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
)

// ErrNotFound is returned when no row matches a request id.
var ErrNotFound = errors.New("answer not found")

// #region answer-record
// AnswerRecord is one logged turn read back from answer_log.
type AnswerRecord struct {
	ID           string                 `json:"id"`
	RequestID    string                 `json:"request_id"`
	ChatID       *int64                 `json:"chat_id"`
	UserID       string                 `json:"user_id"`
	Question     string                 `json:"question"`
	Mode         string                 `json:"mode"`
	Reason       string                 `json:"reason"`
	TopScore     *float64               `json:"top_score"`
	HitsCount    int                    `json:"hits_count"`
	ErrorStage   string                 `json:"error_stage,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	TotalMS      int64                  `json:"total_ms"`
	Record       logging.DecisionRecord `json:"record"`
	CreatedAt    time.Time              `json:"created_at"`
}

// #endregion answer-record
