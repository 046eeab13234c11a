package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"college-buddy/internal/contextutil"
)

const (
	keywordSystemPrompt = "You are a keyword extraction assistant. " +
		"Generate relevant keywords or phrases for the given intent."
	mineSystemPrompt = "You are a keyword extraction assistant. " +
		"Extract key terms or phrases from the given text."
)

// KeywordExpander derives search keywords via completion calls: one call per
// intent, and one call per answer when mining the refinement phase's keywords.
type KeywordExpander struct {
	completer CompletionClient
	timeout   time.Duration
}

// NewKeywordExpander creates a new KeywordExpander.
// timeout bounds each completion call; zero means no bound.
func NewKeywordExpander(completer CompletionClient, timeout time.Duration) *KeywordExpander {
	return &KeywordExpander{
		completer: completer,
		timeout:   timeout,
	}
}

// Expand generates a keyword set for each intent, preserving intent order.
// A malformed or empty completion yields a keyword set containing a single
// empty string; retrieval treats that as a weak no-op term rather than an error.
func (e *KeywordExpander) Expand(ctx context.Context, intents []Intent) ([]IntentKeywords, error) {
	logger := contextutil.LoggerFromContext(ctx)

	result := make([]IntentKeywords, 0, len(intents))
	for _, intent := range intents {
		prompt := fmt.Sprintf("Generate 5-10 relevant keywords or phrases for this intent, separated by commas: %s", intent)
		reply, err := e.complete(ctx, keywordSystemPrompt, prompt)
		if err != nil {
			logger.ErrorContext(ctx, "keyword expansion failed", "intent", intent, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrCompletionService, err)
		}

		keywords := splitKeywords(reply)
		logger.DebugContext(ctx, "keywords expanded", "intent", intent, "keywords", keywords)
		result = append(result, IntentKeywords{Intent: intent, Keywords: keywords})
	}
	return result, nil
}

// MineAnswer extracts key terms from generated answer text. The refinement
// phase unions these with the first intent's keywords to broaden the second
// retrieval pass beyond the literal query wording.
func (e *KeywordExpander) MineAnswer(ctx context.Context, answer string) (KeywordSet, error) {
	logger := contextutil.LoggerFromContext(ctx)

	prompt := fmt.Sprintf("Extract 5-10 key terms or phrases from this text, separated by commas: %s", answer)
	reply, err := e.complete(ctx, mineSystemPrompt, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "answer keyword mining failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCompletionService, err)
	}

	keywords := splitKeywords(reply)
	logger.DebugContext(ctx, "answer keywords mined", "keywords", keywords)
	return keywords, nil
}

func (e *KeywordExpander) complete(ctx context.Context, system, user string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.completer.Complete(ctx, system, user)
}

// splitKeywords splits completion text on commas and trims each element.
// An empty input yields a set containing one empty string.
func splitKeywords(text string) KeywordSet {
	parts := strings.Split(strings.TrimSpace(text), ",")
	keywords := make(KeywordSet, 0, len(parts))
	for _, part := range parts {
		keywords = append(keywords, strings.TrimSpace(part))
	}
	return keywords
}
