package pipeline

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks college-buddy/internal/pipeline Engine

import (
	"context"
	"strings"

	"college-buddy/internal/contextutil"
)

// Engine answers natural-language questions by running the two-pass
// retrieval-and-synthesis pipeline.
type Engine interface {
	// Answer runs the full pipeline for one query and returns the final
	// answer together with the final per-intent retrieval results and the
	// expanded keyword set used in the refinement pass.
	Answer(ctx context.Context, query string) (Result, error)
}

// engine implements Engine as a two-phase state machine:
//
// Phase 1 (draft): intent extraction, keyword expansion, retrieval,
// context assembly, answer synthesis.
//
// Phase 2 (refine): keywords mined from the draft answer are unioned with
// the first intent's keywords, retrieval and synthesis re-run under a single
// synthetic intent keyed by the original query. The first pass may retrieve
// only documents matching the literal query; mining the draft surfaces
// documents matching concepts the model introduced. Phase 2 is always
// terminal: no convergence check, no further iteration.
type engine struct {
	intents     *IntentExtractor
	keywords    *KeywordExpander
	retriever   *Aggregator
	assembler   *Assembler
	synthesizer *Synthesizer
	maxTokens   int
}

// NewEngine creates a new pipeline engine. maxTokens is the context budget
// passed to the assembler on every run.
func NewEngine(
	intents *IntentExtractor,
	keywords *KeywordExpander,
	retriever *Aggregator,
	assembler *Assembler,
	synthesizer *Synthesizer,
	maxTokens int,
) Engine {
	return &engine{
		intents:     intents,
		keywords:    keywords,
		retriever:   retriever,
		assembler:   assembler,
		synthesizer: synthesizer,
		maxTokens:   maxTokens,
	}
}

// Answer runs the two-phase pipeline for one query.
func (e *engine) Answer(ctx context.Context, query string) (Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(query) == "" {
		return Result{}, &ValidationError{Field: "query", Message: "cannot be empty"}
	}

	logger.InfoContext(ctx, "pipeline run started", "query_length", len(query))

	// Phase 1: draft
	intents, err := e.intents.ExtractIntents(ctx, query)
	if err != nil {
		return Result{}, err
	}

	intentKeywords, err := e.keywords.Expand(ctx, intents)
	if err != nil {
		return Result{}, err
	}

	draftResults, err := e.retriever.Retrieve(ctx, intentKeywords)
	if err != nil {
		return Result{}, err
	}

	draftContext := e.assembler.Assemble(draftResults, e.maxTokens)
	draft, err := e.synthesizer.Synthesize(ctx, query, draftContext)
	if err != nil {
		return Result{}, err
	}
	logger.InfoContext(ctx, "draft answer synthesized",
		"intents", len(intents),
		"draft_length", len(draft),
	)

	// Phase 2: refine
	mined, err := e.keywords.MineAnswer(ctx, draft)
	if err != nil {
		return Result{}, err
	}

	var firstKeywords KeywordSet
	if len(intentKeywords) > 0 {
		firstKeywords = intentKeywords[0].Keywords
	}
	expanded := unionKeywords(firstKeywords, mined)

	finalResults, err := e.retriever.Retrieve(ctx, []IntentKeywords{
		{Intent: Intent(query), Keywords: expanded},
	})
	if err != nil {
		return Result{}, err
	}

	finalContext := e.assembler.Assemble(finalResults, e.maxTokens)
	answer, err := e.synthesizer.Synthesize(ctx, query, finalContext)
	if err != nil {
		return Result{}, err
	}

	logger.InfoContext(ctx, "pipeline run completed",
		"keywords", len(expanded),
		"answer_length", len(answer),
	)

	return Result{
		Answer:   answer,
		Keywords: expanded,
		Results:  finalResults,
	}, nil
}

// unionKeywords unions two keyword sets, preserving first-seen order and
// dropping duplicates. Every element of a appears in the result.
func unionKeywords(a, b KeywordSet) KeywordSet {
	seen := make(map[string]bool, len(a)+len(b))
	union := make(KeywordSet, 0, len(a)+len(b))
	for _, set := range []KeywordSet{a, b} {
		for _, keyword := range set {
			if seen[keyword] {
				continue
			}
			seen[keyword] = true
			union = append(union, keyword)
		}
	}
	return union
}
