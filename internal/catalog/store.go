package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Document is one curated metadata record: a document title, its comma-separated
// tags, and its comma-separated links. The curation screens that maintain these
// records live outside this service; this package only stores and searches them.
type Document struct {
	ID    string
	Title string
	Tags  string
	Links string
}

// ScoredDocument is a Document with a keyword-similarity score (higher is better).
type ScoredDocument struct {
	Document
	Score float32
}

// Store provides keyword search over the curated document catalog.
// It is the alternate metadata retrieval backend: instead of embedding the
// query and running vector search, it substring-matches keywords against the
// tags field and ranks by string similarity.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert inserts a document into the catalog.
// If doc.ID is empty a UUID is assigned.
func (s *Store) Insert(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO documents (id, title, tags, links) VALUES (?, ?, ?, ?)",
		doc.ID, doc.Title, doc.Tags, doc.Links,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// SearchTags returns up to k documents whose tags contain the keyword as a
// substring (case-insensitive), ranked by bigram similarity between the
// keyword and the tags field. An empty keyword matches nothing; it is a
// valid no-op retrieval term, not an error.
func (s *Store) SearchTags(ctx context.Context, keyword string, k int) ([]ScoredDocument, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, tags, links FROM documents WHERE lower(tags) LIKE '%' || lower(?) || '%'",
		keyword,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var matches []ScoredDocument
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Tags, &doc.Links); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		matches = append(matches, ScoredDocument{
			Document: doc,
			Score:    bigramSimilarity(keyword, doc.Tags),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}
