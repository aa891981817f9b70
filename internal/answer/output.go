package answer

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/jsonutil"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region model-output
// ModelOutput is the structured reading of a raw completion. It is one of
// AllowOutput, ClarifyOutput, NoAnswerOutput or InvalidOutput.
type ModelOutput interface {
	declaredSources() []Ref
}

// AllowOutput is a model answer.
type AllowOutput struct {
	Answer  string
	Sources []Ref
}

// ClarifyOutput asks the user for more detail.
type ClarifyOutput struct {
	Questions []string
	Sources   []Ref
}

// NoAnswerOutput declares the knowledge base has no answer. Answer is kept for
// observability.
type NoAnswerOutput struct {
	Answer  string
	Sources []Ref
}

// InvalidOutput is a completion that could not be extracted or whose mode was
// not recognized. Sources holds whatever references could still be read.
type InvalidOutput struct {
	Sources []Ref
}

func (o AllowOutput) declaredSources() []Ref { return o.Sources }
func (o ClarifyOutput) declaredSources() []Ref { return o.Sources }
func (o NoAnswerOutput) declaredSources() []Ref { return o.Sources }
func (o InvalidOutput) declaredSources() []Ref { return o.Sources }

// ParseModelOutput extracts and classifies a raw completion. It never fails;
// anything unusable becomes InvalidOutput.
func ParseModelOutput(raw string) ModelOutput {
	v, ok := jsonutil.ParseLoose(raw)
	if !ok {
		return InvalidOutput{}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return InvalidOutput{}
	}

	refs := ParseRefs(obj["sources"])
	mode, ok := NormalizeMode(obj["mode"])
	if !ok {
		return InvalidOutput{Sources: refs}
	}

	switch mode {
	case gate.ModeAllow:
		return AllowOutput{Answer: coerceText(obj["answer"]), Sources: refs}
	case gate.ModeClarify:
		return ClarifyOutput{Questions: coerceQuestions(obj["clarify"]), Sources: refs}
	default:
		return NoAnswerOutput{Answer: coerceText(obj["answer"]), Sources: refs}
	}
}

// #endregion model-output

// #region refs
type refKind int

const (
	refPosition refKind = iota + 1
	refChunkID
)

// Ref is one entry of the model's declared source list: either a 1-based hit
// position or a chunk identifier.
type Ref struct {
	kind    refKind
	n       int
	chunkID string
}

// RefByPosition references a hit by its retrieval position.
func RefByPosition(n int) Ref { return Ref{kind: refPosition, n: n} }

// RefByChunkID references a hit by its knowledge-base chunk id.
func RefByChunkID(id string) Ref { return Ref{kind: refChunkID, chunkID: id} }

// Resolve looks the reference up in idx.
func (r Ref) Resolve(idx *HitIndex) (retrieval.Hit, bool) {
	switch r.kind {
	case refPosition:
		h, ok := idx.byN[r.n]
		return h, ok
	case refChunkID:
		h, ok := idx.byID[r.chunkID]
		return h, ok
	default:
		return retrieval.Hit{}, false
	}
}

var digitsOnly = regexp.MustCompile(`^\d+$`)

// ParseRefs reads a declared source list. Integers and numeric strings become
// position references; other strings and objects carrying a string "chunk_id"
// become chunk references. Entries of any other shape are dropped.
func ParseRefs(v any) []Ref {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	refs := make([]Ref, 0, len(list))
	for _, item := range list {
		if ref, ok := parseRef(item); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func parseRef(item any) (Ref, bool) {
	switch x := item.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Ref{}, false
		}
		return positionFromFloat(f)
	case float64:
		return positionFromFloat(x)
	case int:
		return RefByPosition(x), true
	case string:
		if digitsOnly.MatchString(x) {
			n, err := strconv.Atoi(x)
			if err != nil {
				return Ref{}, false
			}
			return RefByPosition(n), true
		}
		return RefByChunkID(x), true
	case map[string]any:
		id, ok := x["chunk_id"].(string)
		if !ok {
			return Ref{}, false
		}
		return RefByChunkID(id), true
	default:
		return Ref{}, false
	}
}

func positionFromFloat(f float64) (Ref, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return Ref{}, false
	}
	return RefByPosition(int(f)), true
}

// HitIndex looks hits up by position and by chunk id.
type HitIndex struct {
	byN  map[int]retrieval.Hit
	byID map[string]retrieval.Hit
}

// NewHitIndex indexes hits. Hits without a position or chunk id are only
// reachable through the key they do have.
func NewHitIndex(hits []retrieval.Hit) *HitIndex {
	idx := &HitIndex{
		byN:  make(map[int]retrieval.Hit, len(hits)),
		byID: make(map[string]retrieval.Hit, len(hits)),
	}
	for _, h := range hits {
		if _, dup := idx.byN[h.N]; h.N != 0 && !dup {
			idx.byN[h.N] = h
		}
		if _, dup := idx.byID[h.ChunkID]; h.ChunkID != "" && !dup {
			idx.byID[h.ChunkID] = h
		}
	}
	return idx
}

// #endregion refs

// #region coercion
func coerceText(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// coerceQuestions keeps non-blank strings of a list, or wraps a single
// non-blank string. Anything else yields an empty list.
func coerceQuestions(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case string:
		if q := strings.TrimSpace(x); q != "" {
			out = append(out, q)
		}
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok {
				if q := strings.TrimSpace(s); q != "" {
					out = append(out, q)
				}
			}
		}
	}
	return out
}

// #endregion coercion
