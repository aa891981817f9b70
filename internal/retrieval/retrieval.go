package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/codec"
)

// #region retriever
// Retriever fetches ranked knowledge-base hits for a question.
type Retriever struct {
	codec  *codec.Client
	config RetrievalConfig
}

// NewRetriever creates a Retriever with the given codec client and config.
func NewRetriever(codec *codec.Client, config RetrievalConfig) *Retriever {
	return &Retriever{codec: codec, config: config}
}

// #endregion retriever

// #region retrieve
// Retrieve runs the search and normalizes what comes back:
//  1. consistency check drops hits without a chunk id and duplicates
//  2. hits are stable-sorted by descending score
//  3. missing positions are filled with the 1-based rank
//  4. the list is cut to TopK
func (r *Retriever) Retrieve(ctx context.Context, question string) (Result, error) {
	return r.Search(ctx, question, r.config.TopK)
}

// Search is Retrieve with an explicit hit limit. A non-positive topK falls
// back to the configured one.
func (r *Retriever) Search(ctx context.Context, question string, topK int) (Result, error) {
	if topK <= 0 {
		topK = r.config.TopK
	}
	result := Result{TopK: topK, Hits: []Hit{}}

	searchResults, err := r.codec.Search(ctx, question, topK, r.config.MinScore)
	if err != nil {
		return result, fmt.Errorf("retrieval search: %w", err)
	}

	hits := make([]Hit, len(searchResults))
	for i, sr := range searchResults {
		hits[i] = Hit{
			N:         sr.N,
			ChunkID:   sr.ChunkID,
			Doc:       sr.Doc,
			Section:   sr.Section,
			SourceURL: sr.SourceURL,
			Score:     sr.Score,
			Text:      r.clip(sr.Text),
		}
	}

	hits = SortByScore(r.consistencyCheck(hits))
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	numberHits(hits)

	result.Hits = hits
	if len(hits) > 0 {
		top := hits[0].Score
		result.TopScore = &top
	}
	return result, nil
}

// #endregion retrieve

// #region consistency-check
// consistencyCheck drops hits with an empty chunk id and repeated chunk ids.
func (r *Retriever) consistencyCheck(hits []Hit) []Hit {
	seen := make(map[string]bool)
	valid := make([]Hit, 0, len(hits))

	for _, h := range hits {
		if h.ChunkID == "" {
			continue
		}
		if seen[h.ChunkID] {
			continue
		}
		seen[h.ChunkID] = true
		valid = append(valid, h)
	}

	return valid
}

// #endregion consistency-check

// #region helpers
// SortByScore returns a copy of hits stable-sorted by descending score.
func SortByScore(hits []Hit) []Hit {
	out := make([]Hit, len(hits))
	copy(out, hits)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// numberHits fills missing positions with the 1-based rank unless that
// rank is already taken by another hit.
func numberHits(hits []Hit) {
	taken := make(map[int]bool, len(hits))
	for _, h := range hits {
		if h.N > 0 {
			taken[h.N] = true
		}
	}
	for i := range hits {
		if hits[i].N > 0 {
			continue
		}
		n := i + 1
		for taken[n] {
			n++
		}
		hits[i].N = n
		taken[n] = true
	}
}

func (r *Retriever) clip(text string) string {
	if r.config.MaxPassageLen <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= r.config.MaxPassageLen {
		return text
	}
	return string(runes[:r.config.MaxPassageLen])
}

// #endregion helpers
