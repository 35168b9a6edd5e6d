package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arturoeanton/go-rag-pgvector/internal/adapter/ai"
	"github.com/arturoeanton/go-rag-pgvector/internal/adapter/extract"
	"github.com/arturoeanton/go-rag-pgvector/internal/adapter/store"
	"github.com/arturoeanton/go-rag-pgvector/internal/handler"
	"github.com/arturoeanton/go-rag-pgvector/internal/service"
	"github.com/arturoeanton/go-rag-pgvector/internal/splitter"
	"github.com/arturoeanton/go-rag-pgvector/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting DocSearch",
		"port", cfg.Port,
		"ollama_embed", cfg.OllamaEmbedURL,
		"embed_model", cfg.OllamaEmbedModel,
		"dimension", cfg.EmbeddingDimension,
	)

	chunking := cfg.ChunkingConfig()
	if err := chunking.Validate(); err != nil {
		slog.Error("invalid chunking configuration", "error", err)
		os.Exit(1)
	}

	// Server-lifetime context; cancelling it aborts background ingestion jobs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	if err := pgStore.EnsureSchema(ctx, cfg.EmbeddingDimension); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	searchStore := store.NewSearchStore(pgStore)

	// ── Adapters ─────────────────────────────────────────────────────────
	embedder := ai.NewOllamaEmbedder(ai.OllamaConfig{
		BaseURL:      cfg.OllamaEmbedURL,
		Model:        cfg.OllamaEmbedModel,
		Token:        cfg.OllamaEmbedToken,
		Dimension:    cfg.EmbeddingDimension,
		MaxBatchSize: cfg.EmbedMaxBatchSize,
		RequestsPerS: cfg.EmbedRequestsPerS,
	})
	extractor := extract.NewMarkdownExtractor(cfg.DocumentsPath)

	split, err := splitter.New(chunking, embedder)
	if err != nil {
		slog.Error("failed to build splitter", "error", err)
		os.Exit(1)
	}

	// ── Services ─────────────────────────────────────────────────────────
	ingestService := service.NewIngestService(extractor, split, embedder, pgStore, cfg.IngestParallel)
	searchService := service.NewSearchService(embedder, searchStore)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	// Health check
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	// ── Routes ───────────────────────────────────────────────────────────
	api := app.Group("/api/v1")

	jobTracker := handler.NewJobTracker()

	searchHandler := handler.NewSearchHandler(searchService)
	searchHandler.Register(api)

	documentHandler := handler.NewDocumentHandler(pgStore)
	documentHandler.Register(api)

	ingestHandler := handler.NewIngestHandler(ctx, ingestService, jobTracker)
	ingestHandler.Register(api)

	jobsHandler := handler.NewJobsHandler(jobTracker)
	jobsHandler.Register(api)

	// ── Start ────────────────────────────────────────────────────────────
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
