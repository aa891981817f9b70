package envelope

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

const testID = "00000000-0000-4000-8000-000000000000"

var t0 = time.UnixMilli(1700000000000)

func testOptions() Options {
	return Options{
		Clock: func() time.Time { return t0 },
		NewID: func() string { return testID },
	}
}

// #region build-tests
func TestNew_NormalMessage(t *testing.T) {
	env := New(json.RawMessage(`{"message":{"chat":{"id":123},"from":{"id":456},"text":"  hello  "}}`), testOptions())

	assert.Equal(t, testID, env.Meta.RequestID)
	assert.Equal(t, "2023-11-14T22:13:20.000Z", env.Meta.TS)
	assert.Equal(t, "telegram", env.Meta.Channel)
	assert.Equal(t, "v1", env.Meta.PromptVersion)
	require.NotNil(t, env.Meta.ChatID)
	assert.Equal(t, int64(123), *env.Meta.ChatID)
	assert.Equal(t, "456", env.Input.UserID)
	assert.Equal(t, "hello", env.Input.Question)
	assert.Equal(t, 5, env.Retrieval.TopK)
	assert.Equal(t, int64(1700000000000), env.Timers.StartMS)
	assert.JSONEq(t, `{"message":{"chat":{"id":123},"from":{"id":456},"text":"  hello  "}}`, string(env.Channel))
}

func TestNew_MissingFieldsSafeDefaults(t *testing.T) {
	for _, raw := range []string{`{}`, ``, `not json`, `{"message":"oops"}`, `{"message":{"chat":{"id":0}}}`} {
		env := New(json.RawMessage(raw), testOptions())

		assert.Equal(t, "telegram", env.Meta.Channel, "raw=%q", raw)
		assert.Nil(t, env.Meta.ChatID, "raw=%q", raw)
		assert.Equal(t, UnknownUser, env.Input.UserID, "raw=%q", raw)
		assert.Equal(t, "", env.Input.Question, "raw=%q", raw)
		assert.NotNil(t, env.Retrieval.Hits, "raw=%q", raw)
		assert.NotNil(t, env.Output.Clarify, "raw=%q", raw)
		assert.NotNil(t, env.Output.Sources, "raw=%q", raw)
		assert.Equal(t, gate.Decision{Mode: gate.ModeNoAnswer, Reason: gate.ReasonNoHits}, env.Decision, "raw=%q", raw)
	}
}

func TestNew_StringIDs(t *testing.T) {
	env := New(json.RawMessage(`{"message":{"chat":{"id":"-100123"},"from":{"id":"u-7"},"text":42}}`), testOptions())

	require.NotNil(t, env.Meta.ChatID)
	assert.Equal(t, int64(-100123), *env.Meta.ChatID)
	assert.Equal(t, "u-7", env.Input.UserID)
	assert.Equal(t, "42", env.Input.Question)
}

func TestNew_DefaultOptions(t *testing.T) {
	env := New(nil, Options{ChatModel: "gemini-2.5-flash", TopK: 8})

	assert.Len(t, env.Meta.RequestID, 36)
	assert.Equal(t, "gemini-2.5-flash", env.Meta.ChatModel)
	assert.Equal(t, DefaultEmbeddingModel, env.Meta.EmbeddingModel)
	assert.Equal(t, 8, env.Retrieval.TopK)
	assert.Nil(t, env.Channel)
}

func TestEnvelopeJSONShape(t *testing.T) {
	env := New(json.RawMessage(`{}`), testOptions())
	b, err := json.Marshal(env)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	for _, key := range []string{"meta", "input", "telegram", "retrieval", "decision", "output", "error", "timers", "trace"} {
		assert.Contains(t, got, key)
	}
	output := got["output"].(map[string]any)
	assert.Equal(t, []any{}, output["clarify"])
	assert.Equal(t, []any{}, output["sources"])
	assert.Nil(t, got["error"])
}

func TestNew_TimestampKeepsMilliseconds(t *testing.T) {
	opts := testOptions()
	opts.Clock = func() time.Time { return time.UnixMilli(1700000000123).In(time.FixedZone("X", 3*3600)) }
	env := New(json.RawMessage(`{}`), opts)

	assert.Equal(t, "2023-11-14T22:13:20.123Z", env.Meta.TS)
	assert.Less(t, "2023-11-14T22:13:20.000Z", env.Meta.TS)
}

// #endregion build-tests

// #region mutator-tests
func TestMutators(t *testing.T) {
	env := New(json.RawMessage(`{}`), testOptions())

	top := 0.8
	env.SetRetrieval(retrieval.Result{Hits: nil, TopScore: &top})
	assert.NotNil(t, env.Retrieval.Hits)
	assert.Equal(t, 5, env.Retrieval.TopK)

	env.ApplyGate(gate.Result{Decision: gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK}})
	assert.True(t, env.Decision.Allowed())

	env.Trace.Raw = "raw"
	env.Trace.ContextText = "ctx"
	in := env.AnswerInput()
	assert.Equal(t, env.Decision, in.Gate)
	assert.Equal(t, &top, in.TopScore)
	assert.Equal(t, "raw", in.Raw)
	assert.Equal(t, "ctx", in.ContextText)

	env.ApplyAnswer(answer.Result{
		Decision:   gate.Decision{Mode: gate.ModeAllow, Reason: gate.ReasonOK},
		AnswerText: "Ok",
	})
	assert.Equal(t, "Ok", env.Output.AnswerText)
	assert.NotNil(t, env.Output.Clarify)
	assert.NotNil(t, env.Output.Sources)

	env.Fail("retrieval", errors.New("timeout"))
	env.Fail("llm", errors.New("later"))
	env.Fail("llm", nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrorInfo{Stage: "retrieval", Message: "timeout"}, *env.Error)

	env.Finish(t0.Add(1500 * time.Millisecond))
	assert.Equal(t, int64(1500), env.Timers.TotalMS)
}

// #endregion mutator-tests
