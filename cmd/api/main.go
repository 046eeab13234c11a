package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"college-buddy/internal/catalog"
	"college-buddy/internal/config"
	"college-buddy/internal/handlers"
	"college-buddy/internal/http"
	"college-buddy/internal/llm"
	"college-buddy/internal/pipeline"
	"college-buddy/internal/tokenizer"
	"college-buddy/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure both collections exist with the correct vector size
	collections := []string{cfg.ContentCollection, cfg.MetadataCollection}
	for _, collection := range collections {
		if err := vectorStore.EnsureCollection(ctx, collection, cfg.QdrantVectorSize); err != nil {
			log.Fatalf("Failed to ensure Qdrant collection %q: %v", collection, err)
		}
		slog.Info("Qdrant collection ready", "collection", collection, "vector_size", cfg.QdrantVectorSize)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbedding, err := embedder.EmbedText(ctx, "test")
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbedding) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbedding))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	// Metadata retrieval backend: vector search by default, local keyword
	// catalog when configured
	var metadataRetriever pipeline.Retriever
	switch cfg.MetadataBackend {
	case "keyword":
		db, err := catalog.New(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open catalog database: %v", err)
		}
		defer func() {
			_ = db.Close()
		}()
		if err := catalog.Migrate(db); err != nil {
			log.Fatalf("Failed to run catalog migrations: %v", err)
		}
		slog.Info("Catalog database initialized", "path", cfg.DBPath)
		metadataRetriever = pipeline.NewKeywordRetriever(catalog.NewStore(db))
	default:
		metadataRetriever = pipeline.NewVectorRetriever(embedder, vectorStore, cfg.MetadataCollection)
	}
	contentRetriever := pipeline.NewVectorRetriever(embedder, vectorStore, cfg.ContentCollection)

	codec, err := tokenizer.NewCL100K()
	if err != nil {
		log.Fatalf("Failed to load tokenizer: %v", err)
	}

	engine := pipeline.NewEngine(
		pipeline.NewIntentExtractor(llmClient, cfg.IntentTimeout),
		pipeline.NewKeywordExpander(llmClient, cfg.IntentTimeout),
		pipeline.NewAggregator(metadataRetriever, contentRetriever, cfg.RetrievalTopK),
		pipeline.NewAssembler(codec, cfg.MaxContextTokens),
		pipeline.NewSynthesizer(llmClient, cfg.SynthesisTimeout),
		cfg.MaxContextTokens,
	)
	slog.Info("Answer pipeline initialized", "metadata_backend", cfg.MetadataBackend)

	// Create router with dependencies
	var checker handlers.CollectionChecker = vectorStore
	deps := &http.Deps{
		Engine:      engine,
		Checker:     checker,
		Collections: collections,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
