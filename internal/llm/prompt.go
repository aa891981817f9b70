package llm

import (
	"fmt"
	"strings"
)

// PromptVersion identifies the prompt template below. Bump it on any change so
// logged turns stay comparable.
const PromptVersion = "v1"

// SystemInstruction constrains the model to the retrieved context and the JSON
// reply contract the assembler parses.
const SystemInstruction = `You are a support assistant. Answer ONLY from the numbered knowledge-base context.
Reply with a single JSON object and nothing else:
{"mode": "ANSWER" | "CLARIFY" | "NO_ANSWER", "answer": string, "clarify": [string], "sources": [number]}
- ANSWER: "answer" is the reply, cite passages inline as [n] and list their numbers in "sources".
- CLARIFY: the context is related but the question is ambiguous; put 1-3 short questions in "clarify".
- NO_ANSWER: the context does not contain the answer; leave "sources" empty.
Never invent facts, links or steps that are not in the context.`

// BuildPrompt renders the user turn sent to the model.
func BuildPrompt(question, contextText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question:\n%s\n\n", strings.TrimSpace(question))
	b.WriteString("Context:\n")
	if strings.TrimSpace(contextText) == "" {
		b.WriteString("(no passages)")
	} else {
		b.WriteString(contextText)
	}
	return b.String()
}
