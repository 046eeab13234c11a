package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"college-buddy/internal/catalog"
	"college-buddy/internal/contextutil"
	"college-buddy/internal/vectorstore"
)

const defaultTopK = 5

// perKeywordMatches is the fixed per-keyword limit of the catalog backend.
const perKeywordMatches = 3

// Aggregator issues retrieval queries against the metadata index and the
// content index for every intent, and merges the results into per-intent
// IntentResults with cross-intent deduplication.
type Aggregator struct {
	metadata Retriever
	content  Retriever
	topK     int
}

// NewAggregator creates a new Aggregator. topK bounds each index query;
// values <= 0 fall back to the default of 5.
func NewAggregator(metadata, content Retriever, topK int) *Aggregator {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Aggregator{
		metadata: metadata,
		content:  content,
		topK:     topK,
	}
}

// Retrieve runs both index queries for every intent and merges the results.
// Per-intent queries are independent and run concurrently; deduplication and
// result order follow the declared intent order, so a metadata match retrieved
// for two intents is kept by the earliest intent (first-intent-wins). A failed
// query is not retried: it cancels the remaining queries and aborts the run.
func (a *Aggregator) Retrieve(ctx context.Context, intentKeywords []IntentKeywords) ([]IntentResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	type rawResult struct {
		metadata []Match
		content  []Match
	}
	raw := make([]rawResult, len(intentKeywords))

	g, gctx := errgroup.WithContext(ctx)
	for i, ik := range intentKeywords {
		g.Go(func() error {
			metadata, err := a.metadata.Retrieve(gctx, ik.Keywords, a.topK)
			if err != nil {
				return fmt.Errorf("metadata retrieval for intent %q: %w", ik.Intent, err)
			}
			content, err := a.content.Retrieve(gctx, ik.Keywords, a.topK)
			if err != nil {
				return fmt.Errorf("content retrieval for intent %q: %w", ik.Intent, err)
			}
			raw[i] = rawResult{metadata: metadata, content: content}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return nil, err
	}

	seen := make(map[string]bool)
	results := make([]IntentResult, 0, len(intentKeywords))
	for i, ik := range intentKeywords {
		matches := make([]Match, 0, len(raw[i].metadata))
		for _, m := range raw[i].metadata {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			matches = append(matches, m)
		}
		results = append(results, IntentResult{
			Intent:         ik.Intent,
			Matches:        matches,
			ContentContext: contentContext(raw[i].content),
		})
		logger.DebugContext(ctx, "intent retrieval merged",
			"intent", ik.Intent,
			"metadata_matches", len(matches),
			"content_matches", len(raw[i].content),
		)
	}
	return results, nil
}

// contentContext concatenates the text of content-index matches. A chunk with
// no inline text contributes a placeholder naming its source file instead.
func contentContext(matches []Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.ChunkText != "" {
			parts = append(parts, m.Metadata.ChunkText)
			continue
		}
		name := m.Metadata.FileName
		if name == "" {
			name = "unknown file"
		}
		parts = append(parts, fmt.Sprintf("Content from %s", name))
	}
	return strings.Join(parts, " ")
}

// VectorRetriever retrieves matches by embedding the joined keyword string
// and running similarity search against one vector collection.
type VectorRetriever struct {
	embedder   Embedder
	index      vectorstore.Index
	collection string
}

// NewVectorRetriever creates a retriever over the named collection.
func NewVectorRetriever(embedder Embedder, index vectorstore.Index, collection string) *VectorRetriever {
	return &VectorRetriever{
		embedder:   embedder,
		index:      index,
		collection: collection,
	}
}

// Retrieve joins the keywords with spaces, embeds the joined string, and
// returns the top k similarity matches. An empty keyword set embeds an empty
// string; that is a weak query, not an error.
func (r *VectorRetriever) Retrieve(ctx context.Context, keywords KeywordSet, k int) ([]Match, error) {
	query := strings.Join(keywords, " ")

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}

	results, err := r.index.Search(ctx, r.collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchService, err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		matches = append(matches, Match{
			ID:       result.PointID,
			Score:    result.Score,
			Metadata: metadataFromPayload(result.Meta),
		})
	}
	return matches, nil
}

// metadataFromPayload shapes a stored payload into MatchMetadata.
// Missing fields default to empty strings rather than failing.
func metadataFromPayload(meta map[string]any) MatchMetadata {
	return MatchMetadata{
		Title:     stringField(meta, "title"),
		Tags:      stringField(meta, "tags"),
		Links:     stringField(meta, "links"),
		ChunkText: stringField(meta, "chunk_text"),
		FileName:  stringField(meta, "file_name"),
	}
}

func stringField(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	value, _ := meta[key].(string)
	return value
}

// CatalogSearcher is the catalog dependency of KeywordRetriever.
type CatalogSearcher interface {
	SearchTags(ctx context.Context, keyword string, k int) ([]catalog.ScoredDocument, error)
}

// KeywordRetriever retrieves catalog records by substring-matching each
// keyword against the tags field, taking the top 3 matches per keyword and
// merging by document ID. It is the alternate metadata backend with the same
// contract shape as VectorRetriever.
type KeywordRetriever struct {
	catalog CatalogSearcher
}

// NewKeywordRetriever creates a retriever over the curated document catalog.
func NewKeywordRetriever(searcher CatalogSearcher) *KeywordRetriever {
	return &KeywordRetriever{catalog: searcher}
}

// Retrieve merges per-keyword catalog matches, keeping the first-seen entry
// per document ID, sorted by score with the overall result capped at k.
func (r *KeywordRetriever) Retrieve(ctx context.Context, keywords KeywordSet, k int) ([]Match, error) {
	seen := make(map[string]bool)
	var matches []Match
	for _, keyword := range keywords {
		docs, err := r.catalog.SearchTags(ctx, keyword, perKeywordMatches)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSearchService, err)
		}
		for _, doc := range docs {
			if seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true
			matches = append(matches, Match{
				ID:    doc.ID,
				Score: doc.Score,
				Metadata: MatchMetadata{
					Title: doc.Title,
					Tags:  doc.Tags,
					Links: doc.Links,
				},
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
