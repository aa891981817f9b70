package answer

import (
	"regexp"
	"strconv"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// HeuristicRatio is the fraction of the top score a hit must reach to be cited
// when the model named nothing.
const HeuristicRatio = 0.9

var citationMarker = regexp.MustCompile(`\[(\d+)\]`)

// #region resolve
// ResolveCitations picks the hits that back an answer. The first tier that
// yields anything wins:
//  1. the model's declared sources, unresolvable entries dropped
//  2. distinct [k] markers in answerText, in order of first appearance
//  3. every hit scoring at least HeuristicRatio of the top score
//
// topScore falls back to the first hit's score when nil.
func ResolveCitations(out ModelOutput, answerText string, hits []retrieval.Hit, topScore *float64) []retrieval.Hit {
	if len(hits) == 0 {
		return []retrieval.Hit{}
	}
	idx := NewHitIndex(hits)

	if out != nil {
		if picked := resolveDeclared(out.declaredSources(), idx); len(picked) > 0 {
			return picked
		}
	}
	if picked := resolveMarkers(answerText, idx); len(picked) > 0 {
		return picked
	}
	return scoreHeuristic(hits, topScore)
}

// #endregion resolve

// #region tiers
func resolveDeclared(refs []Ref, idx *HitIndex) []retrieval.Hit {
	picked := make([]retrieval.Hit, 0, len(refs))
	for _, ref := range refs {
		if h, ok := ref.Resolve(idx); ok {
			picked = append(picked, h)
		}
	}
	return picked
}

func resolveMarkers(text string, idx *HitIndex) []retrieval.Hit {
	matches := citationMarker.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(matches))
	picked := make([]retrieval.Hit, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		if h, ok := RefByPosition(n).Resolve(idx); ok {
			picked = append(picked, h)
		}
	}
	return picked
}

func scoreHeuristic(hits []retrieval.Hit, topScore *float64) []retrieval.Hit {
	sorted := retrieval.SortByScore(hits)

	top := hits[0].Score
	if topScore != nil {
		top = *topScore
	}
	threshold := HeuristicRatio * top

	picked := make([]retrieval.Hit, 0, len(sorted))
	for _, h := range sorted {
		if h.Score >= threshold {
			picked = append(picked, h)
		}
	}
	return picked
}

// #endregion tiers
