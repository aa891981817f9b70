package retrieval

import "testing"

func TestFormatContextLayout(t *testing.T) {
	hits := []Hit{
		{N: 1, Doc: "Doc1", Section: "S1", Score: 0.8, Text: "Doc1 text"},
		{N: 2, Doc: "Doc2", Section: "S2", Score: 0.4, Text: "Other"},
	}

	got := FormatContext(hits)

	want := "[1] doc=\"Doc1\" section=\"S1\" score=0.800\nDoc1 text\n\n[2] doc=\"Doc2\" section=\"S2\" score=0.400\nOther"
	if got != want {
		t.Errorf("unexpected context:\n%s\nwant:\n%s", got, want)
	}
}

func TestExtractTopPassage(t *testing.T) {
	tests := []struct {
		name string
		ctx  string
		want string
	}{
		{
			name: "stops at next marker",
			ctx:  "[1] doc=\"Doc1\" section=\"S1\" score=0.550\nACCESS IS GRANTED IN 1 DAY.\n\n[2] doc=\"Doc2\" section=\"S2\" score=0.400\nOther",
			want: "ACCESS IS GRANTED IN 1 DAY.",
		},
		{
			name: "runs to end of text",
			ctx:  "[1] doc=\"Doc1\" section=\"S1\" score=0.800\nDoc1 text\n",
			want: "Doc1 text",
		},
		{
			name: "multi-line passage",
			ctx:  "[1] doc=\"D\" section=\"S\" score=0.900\nline one\nline two\n\n[2] doc=\"E\" section=\"T\" score=0.100\nx",
			want: "line one\nline two",
		},
		{name: "no marker", ctx: "just prose", want: ""},
		{name: "empty", ctx: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractTopPassage(tt.ctx); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatThenExtractRoundTrip(t *testing.T) {
	hits := []Hit{
		{N: 1, Doc: "A", Section: "B", Score: 0.7, Text: "Reset your password from the profile page."},
		{N: 2, Doc: "C", Section: "D", Score: 0.6, Text: "Unrelated."},
	}

	if got := ExtractTopPassage(FormatContext(hits)); got != hits[0].Text {
		t.Errorf("got %q, want %q", got, hits[0].Text)
	}
}

func TestTopPassagePrefersStructuredText(t *testing.T) {
	hits := []Hit{
		{N: 2, ChunkID: "c2", Score: 0.9, Text: "second"},
		{N: 1, ChunkID: "c1", Score: 0.8, Text: "first"},
	}
	if got := TopPassage(hits, "[1] doc=\"x\" section=\"y\" score=0.1\nscraped"); got != "first" {
		t.Errorf("expected hit n=1 text, got %q", got)
	}

	bare := []Hit{{N: 1, ChunkID: "c1", Score: 0.8}}
	if got := TopPassage(bare, "[1] doc=\"x\" section=\"y\" score=0.1\nscraped"); got != "scraped" {
		t.Errorf("expected scraped fallback, got %q", got)
	}

	if got := TopPassage(nil, ""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
