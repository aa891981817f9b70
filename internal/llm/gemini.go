package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// ErrNoCandidates is returned when the model answers without any text.
var ErrNoCandidates = errors.New("llm: response has no candidates")

// contentGenerator is the part of *genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// #region gemini
// Gemini generates replies with the Gemini API, asking for application/json.
type Gemini struct {
	models      contentGenerator
	model       string
	temperature float32
}

// NewGemini creates a Gemini API client for model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGemini(cli.Models, model), nil
}

func newGemini(models contentGenerator, model string) *Gemini {
	return &Gemini{models: models, model: model, temperature: 0.1}
}

// Name reports the model identifier recorded on envelopes.
func (g *Gemini) Name() string { return g.model }

// Generate sends prompt with the system instruction and returns the raw text.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	temp := g.temperature
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SystemInstruction}}},
			ResponseMIMEType:  "application/json",
			Temperature:       &temp,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidates
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

// #endregion gemini
