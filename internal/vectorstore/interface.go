package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks college-buddy/internal/vectorstore Index

import "context"

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Index defines the interface for similarity search over a vector collection.
type Index interface {
	// Search performs a similarity search and returns the top k matches.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)
}
