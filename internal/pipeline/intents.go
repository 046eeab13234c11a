package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"college-buddy/internal/contextutil"
)

const intentSystemPrompt = "You are an intent identification assistant. " +
	"Identify and provide only the primary intent or question within the given query."

// IntentExtractor derives the primary intent of a user query via one
// completion call. Extraction is single-valued: the returned sequence holds
// at most one intent, and is empty when the completion service returns
// empty text.
type IntentExtractor struct {
	completer CompletionClient
	timeout   time.Duration
}

// NewIntentExtractor creates a new IntentExtractor.
// timeout bounds the completion call; zero means no bound.
func NewIntentExtractor(completer CompletionClient, timeout time.Duration) *IntentExtractor {
	return &IntentExtractor{
		completer: completer,
		timeout:   timeout,
	}
}

// ExtractIntents returns the primary intent of the query, or an empty
// sequence if the completion service identified none. The call is not retried.
func (e *IntentExtractor) ExtractIntents(ctx context.Context, query string) ([]Intent, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("Identify the main intent or question within this query. Provide only one primary intent: %s", query)
	reply, err := e.completer.Complete(ctx, intentSystemPrompt, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "intent extraction failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCompletionService, err)
	}

	intent := strings.TrimSpace(reply)
	if intent == "" {
		logger.InfoContext(ctx, "no intent identified", "query_length", len(query))
		return nil, nil
	}

	logger.DebugContext(ctx, "intent identified", "intent", intent)
	return []Intent{Intent(intent)}, nil
}
