package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"college-buddy/internal/contextutil"
)

const synthesisSystemPrompt = "You are College Buddy, an AI assistant designed to help students with their academic queries. " +
	"Answer using the provided context and stay on topic. " +
	"If the context does not contain the information needed, say so plainly instead of guessing. " +
	"Do not help students violate academic integrity policies. " +
	"When the context includes related documents or links, point the student to them. " +
	"Never invent document titles or links that are not present in the context."

// Synthesizer produces the user-facing answer from the query and the
// assembled context. This is the only place user-facing prose is generated;
// the system instruction carries the guardrails (on-topic, admit missing
// information, academic integrity, surface related documents and links).
type Synthesizer struct {
	completer CompletionClient
	timeout   time.Duration
}

// NewSynthesizer creates a new Synthesizer.
// timeout bounds the completion call; zero means no bound.
func NewSynthesizer(completer CompletionClient, timeout time.Duration) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		timeout:   timeout,
	}
}

// Synthesize issues one completion call and returns the trimmed answer text.
func (s *Synthesizer) Synthesize(ctx context.Context, query, assembledContext string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	user := fmt.Sprintf("Query: %s\n\nContext: %s", query, assembledContext)
	reply, err := s.completer.Complete(ctx, synthesisSystemPrompt, user)
	if err != nil {
		logger.ErrorContext(ctx, "answer synthesis failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrCompletionService, err)
	}

	answer := strings.TrimSpace(reply)
	logger.DebugContext(ctx, "answer synthesized", "answer_length", len(answer))
	return answer, nil
}
