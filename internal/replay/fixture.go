package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/logging"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string        `json:"description"`
	Config      FixtureConfig `json:"config"`
	Cases       []FixtureCase `json:"cases"`
}

// FixtureConfig holds the thresholds the expectations were recorded under.
type FixtureConfig struct {
	Gate          gate.Config `json:"gate"`
	OverrideScore float64     `json:"override_score"`
}

// FixtureCase is one recorded turn with its expected outcome. Thresholds and
// OverrideScore, when present, replace the fixture config for this case.
type FixtureCase struct {
	RequestID     string          `json:"request_id"`
	Question      string          `json:"question"`
	Thresholds    *gate.Config    `json:"thresholds,omitempty"`
	OverrideScore *float64        `json:"override_score,omitempty"`
	Hits          []retrieval.Hit `json:"hits"`
	TopScore      *float64        `json:"top_score"`
	ModelCalled   bool            `json:"model_called"`
	Raw           string          `json:"raw"`
	ContextText   string          `json:"context_text,omitempty"`
	Expected      Expectation     `json:"expected"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f as indented JSON.
func WriteFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// FixtureFromRecords builds a fixture from logged decisions. Every case keeps
// the thresholds it was decided under; those of the first record also become
// the fixture config.
func FixtureFromRecords(description string, records []logging.DecisionRecord) *Fixture {
	f := &Fixture{
		Description: description,
		Config: FixtureConfig{
			Gate:          gate.DefaultConfig(),
			OverrideScore: answer.DefaultConfig().OverrideScore,
		},
		Cases: make([]FixtureCase, 0, len(records)),
	}
	if len(records) > 0 {
		f.Config.Gate = records[0].Thresholds
		f.Config.OverrideScore = records[0].OverrideScore
	}
	for _, rec := range records {
		c := CaseFromRecord(rec)
		f.Cases = append(f.Cases, FixtureCase{
			RequestID:     c.RequestID,
			Question:      c.Question,
			Thresholds:    c.Thresholds,
			OverrideScore: c.OverrideScore,
			Hits:          c.Hits,
			TopScore:      c.TopScore,
			ModelCalled:   c.ModelCalled,
			Raw:           c.Raw,
			ContextText:   c.ContextText,
			Expected:      c.Expected,
		})
	}
	return f
}

// ToCase converts a FixtureCase to a replay Case.
func (fc *FixtureCase) ToCase() Case {
	return Case{
		RequestID:     fc.RequestID,
		Question:      fc.Question,
		Thresholds:    fc.Thresholds,
		OverrideScore: fc.OverrideScore,
		Hits:          fc.Hits,
		TopScore:      fc.TopScore,
		ModelCalled:   fc.ModelCalled,
		Raw:           fc.Raw,
		ContextText:   fc.ContextText,
		Expected:      fc.Expected,
	}
}

// ToReplayConfig converts a FixtureConfig to a ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	config := DefaultReplayConfig()
	config.Gate = fc.Gate
	config.Answer.OverrideScore = fc.OverrideScore
	return config
}

// ReplayCases converts every fixture case.
func (f *Fixture) ReplayCases() []Case {
	cases := make([]Case, len(f.Cases))
	for i := range f.Cases {
		cases[i] = f.Cases[i].ToCase()
	}
	return cases
}

// #endregion fixture-loader
