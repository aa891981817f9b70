package retrieval

import (
	"fmt"
	"regexp"
	"strings"
)

var topPassage = regexp.MustCompile(`(?s)\[1\][^\n]*\n(.*?)(?:\n\n\[\d+\]|\s*$)`)

// FormatContext renders hits as the numbered context block given to the model:
//
//	[1] doc="Access guide" section="Requests" score=0.812
//	passage text
//
// Blocks are separated by a blank line.
func FormatContext(hits []Hit) string {
	blocks := make([]string, 0, len(hits))
	for i, h := range hits {
		n := h.N
		if n == 0 {
			n = i + 1
		}
		blocks = append(blocks, fmt.Sprintf("[%d] doc=%q section=%q score=%.3f\n%s",
			n, h.Doc, h.Section, h.Score, strings.TrimSpace(h.Text)))
	}
	return strings.Join(blocks, "\n\n")
}

// ExtractTopPassage returns the text of the [1] block of a context rendered by
// FormatContext, or "" when the layout does not match.
func ExtractTopPassage(contextText string) string {
	m := topPassage.FindStringSubmatch(contextText)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// TopPassage returns the raw text of the first-ranked hit. The structured Text
// field wins; the rendered context is scraped only when no hit carries text.
func TopPassage(hits []Hit, contextText string) string {
	if len(hits) > 0 {
		top := hits[0]
		for _, h := range hits {
			if h.N == 1 {
				top = h
				break
			}
		}
		if text := strings.TrimSpace(top.Text); text != "" {
			return text
		}
	}
	return ExtractTopPassage(contextText)
}
