package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"college-buddy/internal/contextutil"
)

// CollectionChecker reports whether a vector collection exists.
type CollectionChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checker     CollectionChecker
	collections []string
}

// NewHealthHandler creates a new HealthHandler. The checker may be nil when
// no vector store is configured, in which case only liveness is reported.
func NewHealthHandler(checker CollectionChecker, collections []string) *HealthHandler {
	return &HealthHandler{
		checker:     checker,
		collections: collections,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles health check requests.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	logger := contextutil.LoggerFromContext(ctx)

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    make(map[string]string),
	}

	if h.checker != nil {
		for _, collection := range h.collections {
			exists, err := h.checker.CollectionExists(ctx, collection)
			switch {
			case err != nil:
				logger.ErrorContext(ctx, "health check failed", "collection", collection, "error", err)
				resp.Checks[collection] = "error"
				resp.Issues = append(resp.Issues, "cannot reach vector store for collection "+collection)
			case !exists:
				resp.Checks[collection] = "missing"
				resp.Issues = append(resp.Issues, "collection "+collection+" does not exist")
			default:
				resp.Checks[collection] = "ok"
			}
		}
	}

	statusCode := http.StatusOK
	if len(resp.Issues) > 0 {
		resp.Status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
