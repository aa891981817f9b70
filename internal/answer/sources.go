package answer

import (
	"sort"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// MaxSources caps the number of sources shown with an answer.
const MaxSources = 5

// Source is a citation rendered to the user.
type Source struct {
	N         int     `json:"n"`
	ChunkID   string  `json:"chunk_id"`
	Doc       string  `json:"doc"`
	Section   string  `json:"section"`
	SourceURL *string `json:"source_url"`
	Score     float64 `json:"score"`
}

// BuildSources turns resolved hits into at most MaxSources sources. A missing
// position becomes the hit's 1-based place in the input. Repeated chunk ids
// keep their first occurrence; hits without a chunk id are never merged. Ties
// in score keep input order.
func BuildSources(hits []retrieval.Hit) []Source {
	out := make([]Source, 0, len(hits))
	seen := make(map[string]bool, len(hits))

	for i, h := range hits {
		if h.ChunkID != "" {
			if seen[h.ChunkID] {
				continue
			}
			seen[h.ChunkID] = true
		}

		n := h.N
		if n == 0 {
			n = i + 1
		}
		out = append(out, Source{
			N:         n,
			ChunkID:   h.ChunkID,
			Doc:       h.Doc,
			Section:   h.Section,
			SourceURL: h.SourceURL,
			Score:     h.Score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > MaxSources {
		out = out[:MaxSources]
	}
	return out
}
