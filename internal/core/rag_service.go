package core

import (
	"fmt"
	"strings"
)

const (
	NumRelevantChunks  = 3                // Number of chunks to retrieve for context
	UnknownSourceLabel = "Unknown Source" // Label for chunks stored without a title

	// RefusalSentence is what the model must answer when the context has nothing relevant.
	RefusalSentence = "I'm sorry, I couldn't find the answer to that in the knowledge base."
)

const groundingInstruction = "You are a helpful assistant that answers questions using only the knowledge base context below.\n\n" +
	"Rules:\n" +
	"- Answer strictly from the context. Do not add facts that are not in it.\n" +
	"- Answer only the current question. Ignore earlier answers or topics that are unrelated to it.\n" +
	"- If the context does not contain the answer, reply with exactly this sentence and nothing else: %q\n\n" +
	"--- CONTEXT START ---\n%s\n--- CONTEXT END ---"

// BuildContextBlock renders retrieval results in the order given, one
// "Source: <label>" section per result, separated by a blank line.
func BuildContextBlock(results []RetrievalResult) string {
	sections := make([]string, 0, len(results))
	for _, r := range results {
		label := strings.TrimSpace(r.SourceLabel)
		if label == "" {
			label = UnknownSourceLabel
		}
		sections = append(sections, fmt.Sprintf("Source: %s\n%s", label, r.ChunkText))
	}
	return strings.Join(sections, "\n\n")
}

// BuildSystemPrompt embeds the context block verbatim in the grounding instruction.
func BuildSystemPrompt(contextBlock string) string {
	return fmt.Sprintf(groundingInstruction, RefusalSentence, contextBlock)
}
