package answer

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

func TestBuildSourcesMapsFields(t *testing.T) {
	url := "https://kb.example/access"
	got := BuildSources([]retrieval.Hit{
		{N: 2, ChunkID: "c2", Doc: "Doc2", Section: "S2", SourceURL: &url, Score: 0.79, Text: "dropped"},
		{ChunkID: "c9", Doc: "Doc9", Score: 0.1},
	})

	want := []Source{
		{N: 2, ChunkID: "c2", Doc: "Doc2", Section: "S2", SourceURL: &url, Score: 0.79},
		{N: 2, ChunkID: "c9", Doc: "Doc9", Score: 0.1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected sources (-want +got):\n%s", diff)
	}
}

func TestBuildSourcesSortsStably(t *testing.T) {
	got := BuildSources([]retrieval.Hit{
		{N: 1, ChunkID: "a", Score: 0.5},
		{N: 2, ChunkID: "b", Score: 0.9},
		{N: 3, ChunkID: "c", Score: 0.5},
	})

	var ids []string
	for _, s := range got {
		ids = append(ids, s.ChunkID)
	}
	if diff := cmp.Diff([]string{"b", "a", "c"}, ids); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
}

func TestBuildSourcesDedupesAndCaps(t *testing.T) {
	var hits []retrieval.Hit
	for i := 0; i < 8; i++ {
		hits = append(hits, retrieval.Hit{N: i + 1, ChunkID: fmt.Sprintf("c%d", i), Score: float64(i) / 10})
	}
	hits = append(hits, retrieval.Hit{N: 9, ChunkID: "c7", Score: 5})

	got := BuildSources(hits)
	if len(got) != MaxSources {
		t.Fatalf("expected %d sources, got %d", MaxSources, len(got))
	}
	if got[0].ChunkID != "c7" || got[0].Score != 0.7 {
		t.Errorf("expected first occurrence of c7 to win, got %+v", got[0])
	}

	inInput := make(map[string]bool, len(hits))
	for _, h := range hits {
		inInput[h.ChunkID] = true
	}
	for _, s := range got {
		if !inInput[s.ChunkID] {
			t.Errorf("source %s is not an input hit", s.ChunkID)
		}
	}
}

func TestBuildSourcesEmpty(t *testing.T) {
	got := BuildSources(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestBuildSourcesKeepsHitsWithoutChunkID(t *testing.T) {
	got := BuildSources([]retrieval.Hit{
		{N: 1, Doc: "Billing", Score: 0.8},
		{N: 2, Doc: "Access", Score: 0.7},
		{N: 3, ChunkID: "c3", Doc: "Access", Score: 0.6},
	})

	want := []Source{
		{N: 1, Doc: "Billing", Score: 0.8},
		{N: 2, Doc: "Access", Score: 0.7},
		{N: 3, ChunkID: "c3", Doc: "Access", Score: 0.6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected sources (-want +got):\n%s", diff)
	}
}
