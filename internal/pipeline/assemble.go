package pipeline

import (
	"fmt"
	"strings"

	"college-buddy/internal/tokenizer"
)

// Assembler merges intent results into one token-budgeted context string.
type Assembler struct {
	codec     tokenizer.Codec
	maxTokens int
}

// NewAssembler creates a new Assembler. maxTokens is the default budget used
// when Assemble is called with a non-positive budget.
func NewAssembler(codec tokenizer.Codec, maxTokens int) *Assembler {
	return &Assembler{
		codec:     codec,
		maxTokens: maxTokens,
	}
}

// Assemble builds one context string by appending, per intent in order, a
// labeled block with the intent name, a rendering of its metadata matches,
// and its content context. The result is encoded, hard-cut at the token
// budget, and decoded back to text, so the output token count never exceeds
// the budget. Truncation is tail-first with no semantic-boundary awareness:
// intents assembled later are more likely to be cut off entirely. Callers
// needing fairness across intents must pre-sort or pre-budget per intent.
func (a *Assembler) Assemble(results []IntentResult, maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}

	blocks := make([]string, 0, len(results))
	for _, result := range results {
		blocks = append(blocks, fmt.Sprintf("Intent: %s\nMetadata Results: %s\nContent Context: %s",
			result.Intent, renderMatches(result.Matches), result.ContentContext))
	}
	context := strings.Join(blocks, "\n")

	tokens := a.codec.Encode(context)
	if len(tokens) <= maxTokens {
		return context
	}
	return a.codec.Decode(tokens[:maxTokens])
}

// renderMatches renders metadata matches as a flat text listing for the
// completion prompt.
func renderMatches(matches []Match) string {
	if len(matches) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, fmt.Sprintf("[title: %s; tags: %s; links: %s]",
			m.Metadata.Title, m.Metadata.Tags, m.Metadata.Links))
	}
	return strings.Join(parts, " ")
}
