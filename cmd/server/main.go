package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/fiqhlab/shariah-qa/internal/config"
	"github.com/fiqhlab/shariah-qa/internal/handler"
	"github.com/fiqhlab/shariah-qa/internal/index"
	"github.com/fiqhlab/shariah-qa/internal/index/pgvecindex"
	"github.com/fiqhlab/shariah-qa/internal/index/qdrantindex"
	"github.com/fiqhlab/shariah-qa/internal/service"
)

// vectorStore is what main needs from a backend: search, discovery, stats
// and a liveness probe.
type vectorStore interface {
	index.Store
	index.StatsProvider
	Health(ctx context.Context) error
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Optional .env for local development; real deployments set env directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var store vectorStore
	switch cfg.VectorBackend {
	case "qdrant":
		qix, err := qdrantindex.New(qdrantindex.Config{
			URL:    cfg.QdrantURL,
			APIKey: cfg.QdrantAPIKey,
		})
		if err != nil {
			slog.Error("failed to connect to qdrant", "error", err)
			os.Exit(1)
		}
		defer qix.Close()
		store = qix
	case "pgvector":
		pix, err := pgvecindex.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pix.Close()
		store = pix
	}

	var embedder service.Embedder
	switch cfg.EmbedProvider {
	case "openai":
		embedder = service.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbedModel)
	default:
		embedder = service.NewSidecarEmbedder(cfg.EmbedEndpoint)
	}

	var generator service.Generator
	switch cfg.LLMProvider {
	case "openai":
		generator = service.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMMaxTokens)
	default:
		gen, err := service.NewOllamaGenerator(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			slog.Error("failed to create ollama client", "error", err)
			os.Exit(1)
		}
		generator = gen
	}

	retriever := service.NewRetriever(embedder, store)
	orchestrator := service.NewOrchestrator(service.PipelineConfig{
		InitialRetrievalCount: cfg.InitialRetrievalCount,
		FinalRetrievalCount:   cfg.FinalRetrievalCount,
		MinSimilarityScore:    cfg.MinSimilarityScore,
		DiversityWeight:       cfg.DiversityWeight,
		MaxContextLength:      cfg.MaxContextLength,
		LLMTimeout:            cfg.LLMTimeout(),
		FallbackCollections:   cfg.Collections,
	}, retriever, store, generator)

	queryHandler := handler.NewQueryHandler(orchestrator, generator)
	collectionsHandler := handler.NewCollectionsHandler(store, store)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Health(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"unhealthy","error":"%s"}`, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok"}`)
	})

	r.Post("/ask", queryHandler.Handle)
	r.Get("/collections", collectionsHandler.List)
	r.Get("/analytics", collectionsHandler.Analytics)

	slog.Info("pipeline configuration",
		"vector_backend", cfg.VectorBackend,
		"embed_provider", cfg.EmbedProvider,
		"llm_provider", cfg.LLMProvider,
		"collections", cfg.Collections,
		"initial_retrieval_count", cfg.InitialRetrievalCount,
		"final_retrieval_count", cfg.FinalRetrievalCount,
		"min_similarity_score", cfg.MinSimilarityScore,
		"diversity_weight", cfg.DiversityWeight,
		"max_context_length", cfg.MaxContextLength,
	)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Graceful shutdown
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("starting server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("shutting down server...")

	cancelCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(cancelCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
