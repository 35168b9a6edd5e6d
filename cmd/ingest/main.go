// Command ingest runs a batch ingestion over a documents folder: extract,
// chunk, embed, and store every supported file, continuing past per-document
// failures.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arturoeanton/go-rag-pgvector/internal/adapter/ai"
	"github.com/arturoeanton/go-rag-pgvector/internal/adapter/extract"
	"github.com/arturoeanton/go-rag-pgvector/internal/adapter/store"
	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/service"
	"github.com/arturoeanton/go-rag-pgvector/internal/splitter"
	"github.com/arturoeanton/go-rag-pgvector/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	documents := flag.String("documents", cfg.DocumentsPath, "documents folder path")
	clean := flag.Bool("clean", false, "clean existing data before ingestion")
	chunkSize := flag.Int("chunk-size", cfg.ChunkSize, "chunk size for splitting documents")
	chunkOverlap := flag.Int("chunk-overlap", cfg.ChunkOverlap, "chunk overlap size")
	semantic := flag.Bool("semantic", cfg.SemanticChunking, "use semantic chunking")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	chunking := domain.ChunkingConfig{
		ChunkSize:            *chunkSize,
		ChunkOverlap:         *chunkOverlap,
		MinChunkSize:         cfg.MinChunkSize,
		MaxChunkSize:         cfg.MaxChunkSize,
		UseSemanticSplitting: *semantic,
	}
	if err := chunking.Validate(); err != nil {
		slog.Error("invalid chunking configuration", "error", err)
		os.Exit(1)
	}

	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pgStore.EnsureSchema(ctx, cfg.EmbeddingDimension); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	embedder := ai.NewOllamaEmbedder(ai.OllamaConfig{
		BaseURL:      cfg.OllamaEmbedURL,
		Model:        cfg.OllamaEmbedModel,
		Token:        cfg.OllamaEmbedToken,
		Dimension:    cfg.EmbeddingDimension,
		MaxBatchSize: cfg.EmbedMaxBatchSize,
		RequestsPerS: cfg.EmbedRequestsPerS,
	})
	extractor := extract.NewMarkdownExtractor(*documents)

	split, err := splitter.New(chunking, embedder)
	if err != nil {
		slog.Error("failed to build splitter", "error", err)
		os.Exit(1)
	}

	ingest := service.NewIngestService(extractor, split, embedder, pgStore, cfg.IngestParallel)

	started := time.Now()
	results, err := ingest.IngestDirectory(ctx, *documents, *clean,
		func(done, total int, _ domain.IngestionResult) {
			fmt.Printf("Progress: %d/%d documents processed\n", done, total)
		})
	if err != nil {
		slog.Error("ingestion failed", "error", err)
		os.Exit(1)
	}

	totalChunks := 0
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			slog.Warn("document failed", "source", r.Source, "error", r.Error)
			continue
		}
		totalChunks += r.ChunksCreated
		slog.Info("document ingested", "title", r.Title, "chunks", r.ChunksCreated,
			"elapsed", r.ProcessingTime.Round(time.Millisecond))
	}

	fmt.Println("============================================================")
	fmt.Println("INGESTION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Documents processed: %d\n", len(results))
	fmt.Printf("Documents failed:    %d\n", failed)
	fmt.Printf("Total chunks:        %d\n", totalChunks)
	fmt.Printf("Total time:          %.2fs\n", time.Since(started).Seconds())
	fmt.Println("============================================================")

	if failed > 0 {
		os.Exit(1)
	}
}
