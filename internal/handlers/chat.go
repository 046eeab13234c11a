package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"college-buddy/internal/contextutil"
	"college-buddy/internal/pipeline"
)

// ChatHandler handles HTTP requests for answering questions.
type ChatHandler struct {
	engine   pipeline.Engine
	renderer goldmark.Markdown
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(engine pipeline.Engine) *ChatHandler {
	return &ChatHandler{
		engine: engine,
		renderer: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
			),
		),
	}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// MatchMetadataPayload is the metadata of one retrieval match in the response.
type MatchMetadataPayload struct {
	Title string `json:"title"`
	Tags  string `json:"tags"`
	Links string `json:"links"`
}

// MatchPayload is one retrieval match in the response.
type MatchPayload struct {
	ID       string               `json:"id"`
	Metadata MatchMetadataPayload `json:"metadata"`
}

// IntentDataPayload is the per-intent retrieval data in the response.
type IntentDataPayload struct {
	MetadataResults  []MatchPayload `json:"metadata_results"`
	RelatedDocuments []string       `json:"related_documents"`
	RelatedLinks     []string       `json:"related_links"`
}

// DocumentPayload is one related document in the flattened response listing.
type DocumentPayload struct {
	Title string `json:"title"`
	Tags  string `json:"tags"`
	Links string `json:"links"`
}

// ChatResponse represents the HTTP response payload for chat.
type ChatResponse struct {
	Answer           string                       `json:"answer"`
	AnswerHTML       string                       `json:"answer_html,omitempty"`
	Keywords         []string                     `json:"keywords"`
	RelatedDocuments []DocumentPayload            `json:"related_documents"`
	IntentData       map[string]IntentDataPayload `json:"intent_data"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ServeHTTP handles HTTP requests for chat.
// With ?format=html the answer is additionally rendered from markdown to HTML.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Message == "" {
		logger.WarnContext(ctx, "empty message in chat request")
		h.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.engine.Answer(ctx, req.Message)
	if err != nil {
		h.handlePipelineError(w, r, err)
		return
	}

	resp := ChatResponse{
		Answer:           result.Answer,
		Keywords:         result.Keywords,
		RelatedDocuments: []DocumentPayload{},
		IntentData:       make(map[string]IntentDataPayload, len(result.Results)),
	}

	for _, intentResult := range result.Results {
		data := IntentDataPayload{
			MetadataResults:  make([]MatchPayload, 0, len(intentResult.Matches)),
			RelatedDocuments: []string{},
			RelatedLinks:     []string{},
		}
		for _, match := range intentResult.Matches {
			data.MetadataResults = append(data.MetadataResults, MatchPayload{
				ID: match.ID,
				Metadata: MatchMetadataPayload{
					Title: match.Metadata.Title,
					Tags:  match.Metadata.Tags,
					Links: match.Metadata.Links,
				},
			})
			if match.Metadata.Title != "" {
				data.RelatedDocuments = append(data.RelatedDocuments, match.Metadata.Title)
			}
			if match.Metadata.Links != "" {
				data.RelatedLinks = append(data.RelatedLinks, match.Metadata.Links)
			}
			resp.RelatedDocuments = append(resp.RelatedDocuments, DocumentPayload{
				Title: match.Metadata.Title,
				Tags:  match.Metadata.Tags,
				Links: match.Metadata.Links,
			})
		}
		resp.IntentData[string(intentResult.Intent)] = data
	}

	if r.URL.Query().Get("format") == "html" {
		var buf bytes.Buffer
		if err := h.renderer.Convert([]byte(result.Answer), &buf); err != nil {
			logger.WarnContext(ctx, "failed to render answer as HTML", "error", err)
		} else {
			resp.AnswerHTML = buf.String()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to encode response")
		return
	}
}

// handlePipelineError maps pipeline errors to HTTP status codes. Upstream
// failures surface as gateway errors; they are never disguised as empty
// results, so the client can tell "no information found" from "service down".
func (h *ChatHandler) handlePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "pipeline error", "error", err)

	var validationErr *pipeline.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, pipeline.ErrSearchService) {
		h.writeError(w, http.StatusServiceUnavailable, "Search service unavailable")
		return
	}

	if errors.Is(err, pipeline.ErrCompletionService) || errors.Is(err, pipeline.ErrEmbeddingService) {
		h.writeError(w, http.StatusBadGateway, "External service error")
		return
	}

	h.writeError(w, http.StatusInternalServerError, "Failed to answer question")
}

// writeError writes an error response.
func (h *ChatHandler) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
