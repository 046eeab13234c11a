package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"college-buddy/internal/catalog"
	"college-buddy/internal/pipeline"
	"college-buddy/internal/pipeline/mocks"
	"college-buddy/internal/vectorstore"
	vsmocks "college-buddy/internal/vectorstore/mocks"
)

func TestAggregator_Retrieve_Dedup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	metadata := mocks.NewMockRetriever(ctrl)
	content := mocks.NewMockRetriever(ctrl)

	firstKeywords := pipeline.KeywordSet{"registration"}
	secondKeywords := pipeline.KeywordSet{"deadline"}

	shared := pipeline.Match{ID: "7", Score: 0.9, Metadata: pipeline.MatchMetadata{Title: "Registration Guide"}}
	onlySecond := pipeline.Match{ID: "8", Score: 0.8, Metadata: pipeline.MatchMetadata{Title: "Deadlines"}}

	metadata.EXPECT().
		Retrieve(gomock.Any(), firstKeywords, 5).
		Return([]pipeline.Match{shared}, nil)
	metadata.EXPECT().
		Retrieve(gomock.Any(), secondKeywords, 5).
		Return([]pipeline.Match{shared, onlySecond}, nil)
	content.EXPECT().
		Retrieve(gomock.Any(), firstKeywords, 5).
		Return([]pipeline.Match{{ID: "c1", Metadata: pipeline.MatchMetadata{ChunkText: "Register online by May 1."}}}, nil)
	content.EXPECT().
		Retrieve(gomock.Any(), secondKeywords, 5).
		Return(nil, nil)

	aggregator := pipeline.NewAggregator(metadata, content, 5)
	results, err := aggregator.Retrieve(context.Background(), []pipeline.IntentKeywords{
		{Intent: "first", Keywords: firstKeywords},
		{Intent: "second", Keywords: secondKeywords},
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Retrieve() returned %d results, want 2", len(results))
	}
	if results[0].Intent != "first" || results[1].Intent != "second" {
		t.Errorf("Retrieve() intent order = %v, %v", results[0].Intent, results[1].Intent)
	}

	// Document 7 appears under the first intent only
	if len(results[0].Matches) != 1 || results[0].Matches[0].ID != "7" {
		t.Errorf("first intent matches = %v, want only document 7", results[0].Matches)
	}
	if len(results[1].Matches) != 1 || results[1].Matches[0].ID != "8" {
		t.Errorf("second intent matches = %v, want only document 8", results[1].Matches)
	}

	if results[0].ContentContext != "Register online by May 1." {
		t.Errorf("first intent content context = %q", results[0].ContentContext)
	}
	if results[1].ContentContext != "" {
		t.Errorf("second intent content context = %q, want empty", results[1].ContentContext)
	}
}

func TestAggregator_Retrieve_ContentPlaceholder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	metadata := mocks.NewMockRetriever(ctrl)
	content := mocks.NewMockRetriever(ctrl)

	keywords := pipeline.KeywordSet{"housing"}
	metadata.EXPECT().Retrieve(gomock.Any(), keywords, 5).Return(nil, nil)
	content.EXPECT().Retrieve(gomock.Any(), keywords, 5).Return([]pipeline.Match{
		{ID: "c1", Metadata: pipeline.MatchMetadata{FileName: "housing.md"}},
		{ID: "c2", Metadata: pipeline.MatchMetadata{}},
	}, nil)

	aggregator := pipeline.NewAggregator(metadata, content, 5)
	results, err := aggregator.Retrieve(context.Background(), []pipeline.IntentKeywords{
		{Intent: "housing options", Keywords: keywords},
	})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	want := "Content from housing.md Content from unknown file"
	if results[0].ContentContext != want {
		t.Errorf("ContentContext = %q, want %q", results[0].ContentContext, want)
	}
}

func TestAggregator_Retrieve_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	metadata := mocks.NewMockRetriever(ctrl)
	content := mocks.NewMockRetriever(ctrl)

	keywords := pipeline.KeywordSet{"registration"}
	metadata.EXPECT().
		Retrieve(gomock.Any(), keywords, 5).
		Return(nil, errors.New("index offline"))
	// The content query may or may not run before the group is cancelled
	content.EXPECT().
		Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil).
		AnyTimes()

	aggregator := pipeline.NewAggregator(metadata, content, 5)
	_, err := aggregator.Retrieve(context.Background(), []pipeline.IntentKeywords{
		{Intent: "intent", Keywords: keywords},
	})
	if err == nil {
		t.Fatal("Retrieve() expected error, got nil")
	}
}

func TestAggregator_Retrieve_NoIntents(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	aggregator := pipeline.NewAggregator(mocks.NewMockRetriever(ctrl), mocks.NewMockRetriever(ctrl), 5)
	results, err := aggregator.Retrieve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Retrieve() returned %d results, want 0", len(results))
	}
}

func TestVectorRetriever_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	index := vsmocks.NewMockIndex(ctrl)

	vector := []float32{0.1, 0.2}
	embedder.EXPECT().
		EmbedText(gomock.Any(), "registration deadline courses").
		Return(vector, nil)
	index.EXPECT().
		Search(gomock.Any(), "college-buddy-metadata", vector, 5).
		Return([]vectorstore.SearchResult{
			{
				PointID: "42",
				Score:   0.88,
				Meta: map[string]any{
					"title": "Registration Guide",
					"tags":  "registration, courses",
					"links": "https://example.edu/reg",
				},
			},
			{
				PointID: "43",
				Score:   0.7,
				Meta:    nil,
			},
		}, nil)

	retriever := pipeline.NewVectorRetriever(embedder, index, "college-buddy-metadata")
	matches, err := retriever.Retrieve(context.Background(),
		pipeline.KeywordSet{"registration", "deadline", "courses"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("Retrieve() returned %d matches, want 2", len(matches))
	}
	if matches[0].ID != "42" || matches[0].Score != 0.88 {
		t.Errorf("match[0] = %+v", matches[0])
	}
	if matches[0].Metadata.Title != "Registration Guide" {
		t.Errorf("match[0] title = %q", matches[0].Metadata.Title)
	}
	// Missing payload fields default to empty strings
	if matches[1].Metadata.Title != "" || matches[1].Metadata.Tags != "" {
		t.Errorf("match[1] metadata should be empty, got %+v", matches[1].Metadata)
	}
}

func TestVectorRetriever_Retrieve_EmptyKeywords(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	embedder := mocks.NewMockEmbedder(ctrl)
	index := vsmocks.NewMockIndex(ctrl)

	// An empty keyword set embeds an empty string; it is a weak query, not
	// an error
	embedder.EXPECT().
		EmbedText(gomock.Any(), "").
		Return([]float32{0.0, 0.0}, nil)
	index.EXPECT().
		Search(gomock.Any(), "college", []float32{0.0, 0.0}, 5).
		Return(nil, nil)

	retriever := pipeline.NewVectorRetriever(embedder, index, "college")
	matches, err := retriever.Retrieve(context.Background(), pipeline.KeywordSet{}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Retrieve() returned %d matches, want 0", len(matches))
	}
}

func TestVectorRetriever_Retrieve_Errors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		embedder := mocks.NewMockEmbedder(ctrl)
		index := vsmocks.NewMockIndex(ctrl)
		embedder.EXPECT().
			EmbedText(gomock.Any(), gomock.Any()).
			Return(nil, errors.New("model not loaded"))

		retriever := pipeline.NewVectorRetriever(embedder, index, "college")
		_, err := retriever.Retrieve(context.Background(), pipeline.KeywordSet{"a"}, 5)
		if !errors.Is(err, pipeline.ErrEmbeddingService) {
			t.Errorf("Retrieve() error = %v, want ErrEmbeddingService", err)
		}
	})

	t.Run("search failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		embedder := mocks.NewMockEmbedder(ctrl)
		index := vsmocks.NewMockIndex(ctrl)
		embedder.EXPECT().
			EmbedText(gomock.Any(), gomock.Any()).
			Return([]float32{0.1}, nil)
		index.EXPECT().
			Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("collection not found"))

		retriever := pipeline.NewVectorRetriever(embedder, index, "college")
		_, err := retriever.Retrieve(context.Background(), pipeline.KeywordSet{"a"}, 5)
		if !errors.Is(err, pipeline.ErrSearchService) {
			t.Errorf("Retrieve() error = %v, want ErrSearchService", err)
		}
	})
}

// fakeCatalog is a CatalogSearcher backed by a fixed keyword-to-documents map.
type fakeCatalog struct {
	docs map[string][]catalog.ScoredDocument
	err  error
	gotK []int
}

func (f *fakeCatalog) SearchTags(ctx context.Context, keyword string, k int) ([]catalog.ScoredDocument, error) {
	f.gotK = append(f.gotK, k)
	if f.err != nil {
		return nil, f.err
	}
	docs := f.docs[keyword]
	if len(docs) > k {
		docs = docs[:k]
	}
	return docs, nil
}

func TestKeywordRetriever_Retrieve(t *testing.T) {
	searcher := &fakeCatalog{
		docs: map[string][]catalog.ScoredDocument{
			"registration": {
				{Document: catalog.Document{ID: "1", Title: "Registration Guide"}, Score: 0.9},
				{Document: catalog.Document{ID: "2", Title: "Late Registration"}, Score: 0.5},
			},
			"deadline": {
				{Document: catalog.Document{ID: "2", Title: "Late Registration"}, Score: 0.8},
				{Document: catalog.Document{ID: "3", Title: "Academic Calendar"}, Score: 0.7},
			},
		},
	}

	retriever := pipeline.NewKeywordRetriever(searcher)
	matches, err := retriever.Retrieve(context.Background(),
		pipeline.KeywordSet{"registration", "deadline"}, 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	// Each keyword queries the catalog with the fixed per-keyword limit
	for _, k := range searcher.gotK {
		if k != 3 {
			t.Errorf("per-keyword limit = %d, want 3", k)
		}
	}

	// Document 2 appears for both keywords but is kept once, with its
	// first-seen score
	if len(matches) != 3 {
		t.Fatalf("Retrieve() returned %d matches, want 3", len(matches))
	}
	if matches[0].ID != "1" {
		t.Errorf("top match = %s, want 1", matches[0].ID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not sorted by score: %v before %v", matches[i-1].Score, matches[i].Score)
		}
	}
	for _, m := range matches {
		if m.ID == "2" && m.Score != 0.5 {
			t.Errorf("document 2 score = %v, want first-seen 0.5", m.Score)
		}
	}
}

func TestKeywordRetriever_Retrieve_CapsAtK(t *testing.T) {
	searcher := &fakeCatalog{
		docs: map[string][]catalog.ScoredDocument{
			"a": {
				{Document: catalog.Document{ID: "1"}, Score: 0.9},
				{Document: catalog.Document{ID: "2"}, Score: 0.8},
				{Document: catalog.Document{ID: "3"}, Score: 0.7},
			},
			"b": {
				{Document: catalog.Document{ID: "4"}, Score: 0.6},
			},
		},
	}

	retriever := pipeline.NewKeywordRetriever(searcher)
	matches, err := retriever.Retrieve(context.Background(), pipeline.KeywordSet{"a", "b"}, 2)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("Retrieve() returned %d matches, want 2", len(matches))
	}
}

func TestKeywordRetriever_Retrieve_Error(t *testing.T) {
	searcher := &fakeCatalog{err: errors.New("database locked")}

	retriever := pipeline.NewKeywordRetriever(searcher)
	_, err := retriever.Retrieve(context.Background(), pipeline.KeywordSet{"a"}, 5)
	if !errors.Is(err, pipeline.ErrSearchService) {
		t.Errorf("Retrieve() error = %v, want ErrSearchService", err)
	}
}
