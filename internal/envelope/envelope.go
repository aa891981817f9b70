package envelope

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region options
// Options controls envelope construction. Zero values fall back to the
// production defaults.
type Options struct {
	Clock          func() time.Time
	NewID          func() string
	ChatModel      string
	EmbeddingModel string
	TopK           int
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.New().String() }
	}
	if o.ChatModel == "" {
		o.ChatModel = DefaultChatModel
	}
	if o.EmbeddingModel == "" {
		o.EmbeddingModel = DefaultEmbeddingModel
	}
	if o.TopK <= 0 {
		o.TopK = retrieval.DefaultConfig().TopK
	}
	return o
}

// #endregion options

// #region new
// New builds the envelope for an inbound channel update. The chat id, sender
// id and text are read defensively: a missing chat id is nil, a missing sender
// is UnknownUser and missing text is "". Malformed updates are not stored.
func New(update json.RawMessage, opts Options) *Envelope {
	opts = opts.withDefaults()
	now := opts.Clock()

	msg := messageOf(update)

	env := &Envelope{
		Meta: Meta{
			RequestID:      opts.NewID(),
			TS:             now.UTC().Format(TimestampLayout),
			Channel:        DefaultChannel,
			PromptVersion:  DefaultPromptVersion,
			ChatModel:      opts.ChatModel,
			EmbeddingModel: opts.EmbeddingModel,
			ChatID:         chatIDOf(msg),
		},
		Input: Input{
			UserID:   userIDOf(msg),
			Question: textOf(msg),
		},
		Retrieval: retrieval.Result{TopK: opts.TopK, Hits: []retrieval.Hit{}},
		Decision:  gate.Decision{Mode: gate.ModeNoAnswer, Reason: gate.ReasonNoHits},
		Output: Output{
			Clarify: []string{},
			Sources: []answer.Source{},
		},
		Timers: Timers{StartMS: now.UnixMilli()},
	}
	if len(update) > 0 && json.Valid(update) {
		env.Channel = append(json.RawMessage(nil), update...)
	}
	return env
}

// #endregion new

// #region mutators
// SetRetrieval attaches retrieval results. A nil hit list is stored as empty.
func (e *Envelope) SetRetrieval(res retrieval.Result) {
	if res.Hits == nil {
		res.Hits = []retrieval.Hit{}
	}
	if res.TopK <= 0 {
		res.TopK = e.Retrieval.TopK
	}
	e.Retrieval = res
}

// ApplyGate records the gate decision.
func (e *Envelope) ApplyGate(res gate.Result) {
	e.Decision = res.Decision
}

// ApplyAnswer records the final decision and user-facing output.
func (e *Envelope) ApplyAnswer(res answer.Result) {
	e.Decision = res.Decision
	e.Output = Output{
		AnswerText: res.AnswerText,
		Clarify:    nonNil(res.Clarify),
		Sources:    res.Sources,
	}
	if e.Output.Sources == nil {
		e.Output.Sources = []answer.Source{}
	}
}

// Fail records a collaborator failure. Only the first failure is kept.
func (e *Envelope) Fail(stage string, err error) {
	if err == nil || e.Error != nil {
		return
	}
	e.Error = &ErrorInfo{Stage: stage, Message: err.Error()}
}

// Finish stamps the total duration.
func (e *Envelope) Finish(now time.Time) {
	e.Timers.TotalMS = now.UnixMilli() - e.Timers.StartMS
}

// AnswerInput returns the assembler input for this envelope, built from the
// current decision, retrieval and trace.
func (e *Envelope) AnswerInput() answer.Input {
	return answer.Input{
		Gate:        e.Decision,
		Hits:        e.Retrieval.Hits,
		TopScore:    e.Retrieval.TopScore,
		Raw:         e.Trace.Raw,
		ContextText: e.Trace.ContextText,
	}
}

// #endregion mutators

// #region update-fields
func messageOf(update json.RawMessage) map[string]any {
	if len(update) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(update))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil
	}
	msg, _ := root["message"].(map[string]any)
	return msg
}

func chatIDOf(msg map[string]any) *int64 {
	chat, _ := msg["chat"].(map[string]any)

	var id int64
	switch v := chat["id"].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			id = n
		} else if f, err := v.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			id = int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			id = n
		}
	}
	if id == 0 {
		return nil
	}
	return &id
}

func userIDOf(msg map[string]any) string {
	from, _ := msg["from"].(map[string]any)
	switch v := from["id"].(type) {
	case json.Number:
		return v.String()
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return UnknownUser
	}
}

func textOf(msg map[string]any) string {
	switch v := msg["text"].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// #endregion update-fields
