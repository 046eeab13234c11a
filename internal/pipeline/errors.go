package pipeline

import (
	"errors"
	"fmt"
)

// Upstream-service sentinels. Wrapping these lets the HTTP layer distinguish
// "upstream service failure" from the valid empty-result states, which are
// returned as empty containers and never as errors.
var (
	// ErrCompletionService is returned when a completion call fails.
	ErrCompletionService = errors.New("completion service error")
	// ErrEmbeddingService is returned when an embedding call fails.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrSearchService is returned when a similarity or catalog query fails.
	ErrSearchService = errors.New("search service error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
