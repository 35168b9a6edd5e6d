package service

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/port"
	"github.com/arturoeanton/go-rag-pgvector/internal/splitter"
)

// DefaultParallelism caps how many documents are ingested concurrently.
const DefaultParallelism = 4

// ProgressFunc receives per-document progress during a batch run.
type ProgressFunc func(done, total int, result domain.IngestionResult)

// IngestService runs the ingestion pipeline: extract, split, embed, store.
// Documents are processed in parallel up to a shared concurrency cap; within
// a document the stages are strictly sequential.
type IngestService struct {
	extractor port.Extractor
	split     splitter.Splitter
	embedder  port.Embedder
	docs      port.DocumentStore
	parallel  int
}

// NewIngestService creates the ingestion service. parallel <= 0 selects
// DefaultParallelism.
func NewIngestService(extractor port.Extractor, split splitter.Splitter, embedder port.Embedder, docs port.DocumentStore, parallel int) *IngestService {
	if parallel <= 0 {
		parallel = DefaultParallelism
	}
	return &IngestService{
		extractor: extractor,
		split:     split,
		embedder:  embedder,
		docs:      docs,
		parallel:  parallel,
	}
}

// IngestDocument runs the full pipeline for a single source file and returns
// its result. Storage is one transaction: on any failure nothing of the
// document is visible afterwards.
func (s *IngestService) IngestDocument(ctx context.Context, path string) (domain.IngestionResult, error) {
	started := time.Now()
	fail := func(err error) (domain.IngestionResult, error) {
		return domain.IngestionResult{
			Source:           path,
			ProcessingTime:   time.Since(started),
			ProcessingTimeMS: float64(time.Since(started).Milliseconds()),
			Err:              err,
			Error:            err.Error(),
		}, err
	}

	extraction, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return fail(err)
	}

	slog.Info("ingesting document", "title", extraction.Title, "source", extraction.Source)

	chunks, err := s.split.Split(ctx, extraction.Content, splitter.SourceInfo{
		Title:    extraction.Title,
		Source:   extraction.Source,
		Metadata: extraction.Metadata,
	})
	if err != nil {
		return fail(fmt.Errorf("split %s: %w", extraction.Source, err))
	}
	if len(chunks) == 0 {
		slog.Warn("no chunks produced", "source", extraction.Source)
		return domain.IngestionResult{
			Title:          extraction.Title,
			Source:         extraction.Source,
			ProcessingTime: time.Since(started),
		}, nil
	}

	embedded, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return fail(err)
	}

	doc := &domain.Document{
		Title:    extraction.Title,
		Source:   extraction.Source,
		Content:  extraction.Content,
		Metadata: extraction.Metadata,
	}
	documentID, err := s.docs.SaveDocument(ctx, doc, embedded)
	if err != nil {
		return fail(err)
	}

	elapsed := time.Since(started)
	slog.Info("document ingested", "document_id", documentID, "chunks", len(embedded), "elapsed", elapsed)
	return domain.IngestionResult{
		DocumentID:       documentID,
		Title:            extraction.Title,
		Source:           extraction.Source,
		ChunksCreated:    len(embedded),
		ProcessingTime:   elapsed,
		ProcessingTimeMS: float64(elapsed.Milliseconds()),
	}, nil
}

// embedChunks sends every chunk text to the backend in batched calls and
// attaches the vectors. All-or-nothing: a backend failure means no chunk of
// the document is persisted.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrEmbedding, len(vectors), len(chunks))
	}

	now := time.Now()
	embedded := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		embedded[i] = c.WithEmbedding(vectors[i], s.embedder.ModelName(), now)
	}
	return embedded, nil
}

// IngestDirectory ingests every supported file under dir. A failing document
// is recorded in its result and the run continues; only context cancellation
// aborts the batch. When clean is set, all existing data is removed first.
func (s *IngestService) IngestDirectory(ctx context.Context, dir string, clean bool, progress ProgressFunc) ([]domain.IngestionResult, error) {
	paths, err := s.findSources(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		slog.Warn("no ingestible files found", "dir", dir)
		return nil, nil
	}

	if clean {
		slog.Warn("cleaning existing documents before ingestion")
		if err := s.docs.DeleteAll(ctx); err != nil {
			return nil, err
		}
	}

	slog.Info("starting batch ingestion", "files", len(paths), "parallelism", s.parallel)

	results := make([]domain.IngestionResult, len(paths))
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	var mu sync.Mutex

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := s.IngestDocument(gctx, path)
			results[i] = result
			if err != nil {
				slog.Error("document ingestion failed", "path", path, "error", err)
			}

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(paths), result)
			}
			mu.Unlock()

			// Per-document failures do not abort the batch.
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch ingestion aborted: %w", err)
	}
	return results, nil
}

// findSources walks dir and returns supported files in a stable order.
func (s *IngestService) findSources(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && s.extractor.Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %v", domain.ErrExtraction, dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}
