package retrieval

// #region config
// RetrievalConfig holds limits for knowledge-base retrieval.
type RetrievalConfig struct {
	TopK          int     `yaml:"top_k"`           // max hits returned per question
	MinScore      float64 `yaml:"min_score"`       // similarity floor enforced by the knowledge service
	MaxPassageLen int     `yaml:"max_passage_len"` // max chars of passage text kept per hit, 0 = unlimited
}

// DefaultConfig returns the retrieval defaults used by the bot.
func DefaultConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:          5,
		MinScore:      0,
		MaxPassageLen: 4000,
	}
}

// #endregion config

// #region hit
// Hit is one retrieved passage candidate. N is the 1-based position assigned
// by retrieval and is unique within a request; ChunkID is unique across the
// knowledge base. Hits are immutable for the duration of a request.
type Hit struct {
	N         int     `json:"n"`
	ChunkID   string  `json:"chunk_id"`
	Doc       string  `json:"doc"`
	Section   string  `json:"section"`
	SourceURL *string `json:"source_url"`
	Score     float64 `json:"score"`
	Text      string  `json:"text,omitempty"`
}

// #endregion hit

// #region result
// Result is the retrieval outcome attached to a request envelope.
type Result struct {
	TopK     int      `json:"top_k"`
	Hits     []Hit    `json:"hits"`
	TopScore *float64 `json:"top_score"`
}

// TopScoreOrFirst returns TopScore when set, else the first hit's score, else 0.
func (r Result) TopScoreOrFirst() float64 {
	if r.TopScore != nil {
		return *r.TopScore
	}
	if len(r.Hits) > 0 {
		return r.Hits[0].Score
	}
	return 0
}

// #endregion result
