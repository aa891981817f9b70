package llm

import (
	"context"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/codec"
)

// Knowledge generates replies through the knowledge service's Generate RPC.
type Knowledge struct {
	client *codec.Client
	model  string
}

// NewKnowledge wraps a codec client. model is only used for reporting.
func NewKnowledge(client *codec.Client, model string) *Knowledge {
	return &Knowledge{client: client, model: model}
}

// Name reports the model identifier recorded on envelopes.
func (k *Knowledge) Name() string { return k.model }

// Generate prepends the system instruction and returns the service's text.
func (k *Knowledge) Generate(ctx context.Context, prompt string) (string, error) {
	return k.client.Complete(ctx, SystemInstruction+"\n\n"+prompt)
}
