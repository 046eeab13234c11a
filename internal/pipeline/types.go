package pipeline

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_completion_client.go -package=mocks college-buddy/internal/pipeline CompletionClient
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks college-buddy/internal/pipeline Embedder
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks college-buddy/internal/pipeline Retriever

import "context"

// Intent is the primary goal or question the pipeline believes a user query expresses.
type Intent string

// KeywordSet is an ordered sequence of search keywords derived for one intent.
// It may contain a single empty string when keyword expansion produced nothing;
// downstream stages treat that as a weak no-op retrieval term.
type KeywordSet []string

// IntentKeywords pairs one intent with its expanded keyword set.
type IntentKeywords struct {
	Intent   Intent
	Keywords KeywordSet
}

// MatchMetadata holds the metadata fields of a retrieval match.
// Fields missing from the stored payload are empty strings, never absent.
type MatchMetadata struct {
	Title     string `json:"title"`
	Tags      string `json:"tags"`
	Links     string `json:"links"`
	ChunkText string `json:"chunk_text,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// Match is a single retrieval match. Identity is by ID: two matches with the
// same ID from the same source are the same entity.
type Match struct {
	ID       string        `json:"id"`
	Score    float32       `json:"score"`
	Metadata MatchMetadata `json:"metadata"`
}

// IntentResult holds the retrieval outcome for one intent: its metadata
// matches (deduplicated against all matches seen earlier in the same run)
// and the concatenated text of its content-index matches.
type IntentResult struct {
	Intent         Intent
	Matches        []Match
	ContentContext string
}

// Result is the outcome of one full pipeline run. Results preserve declared
// intent order; nothing in a Result outlives the request that produced it.
type Result struct {
	Answer   string
	Keywords KeywordSet
	Results  []IntentResult
}

// CompletionClient is the completion-service dependency of the pipeline.
// The intent extractor, keyword expander, and answer synthesizer all use it
// with different prompts. Defined from the pipeline's perspective (consumer-first).
type CompletionClient interface {
	// Complete sends a system instruction and user message and returns the trimmed completion text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Embedder turns text into a fixed-length numeric vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Retriever finds the stored records most relevant to a keyword set.
// Implementations: VectorRetriever (embedding + similarity index) and
// KeywordRetriever (tag substring matching over the curated catalog).
type Retriever interface {
	Retrieve(ctx context.Context, keywords KeywordSet, k int) ([]Match, error)
}
