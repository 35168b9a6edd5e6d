package handler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/port"
	"github.com/arturoeanton/go-rag-pgvector/internal/service"
	"github.com/arturoeanton/go-rag-pgvector/internal/splitter"
)

type plainExtractor struct{}

func (plainExtractor) Supports(path string) bool {
	return filepath.Ext(path) == ".txt"
}

func (plainExtractor) Extract(_ context.Context, path string) (*port.Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	return &port.Extraction{
		Content:  string(raw),
		Title:    strings.TrimSuffix(name, ".txt"),
		Source:   name,
		Metadata: map[string]any{},
	}, nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) ModelName() string { return "fixed" }
func (fixedEmbedder) Dimension() int    { return 1 }

func (fixedEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

func (fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

type countingStore struct {
	mu    sync.Mutex
	saved int
}

func (c *countingStore) SaveDocument(_ context.Context, _ *domain.Document, _ []domain.Chunk) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saved++
	return "doc-id", nil
}

func (c *countingStore) GetDocument(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (c *countingStore) GetDocumentChunks(context.Context, string) ([]domain.Chunk, error) {
	return nil, nil
}

func (c *countingStore) ListDocuments(context.Context, int, int) ([]domain.DocumentMetadata, error) {
	return nil, nil
}

func (c *countingStore) DeleteAll(context.Context) error { return nil }

func newIngestFixture(t *testing.T, base context.Context) (*IngestHandler, *countingStore, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"),
		[]byte(strings.Repeat("some document text. ", 20)), 0o644))

	split, err := splitter.NewStructural(domain.ChunkingConfig{
		ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 10, MaxChunkSize: 400,
	})
	require.NoError(t, err)

	store := &countingStore{}
	ingest := service.NewIngestService(plainExtractor{}, split, fixedEmbedder{}, store, 1)
	return NewIngestHandler(base, ingest, NewJobTracker()), store, dir
}

func TestIngestHandler_RunJob(t *testing.T) {
	h, store, dir := newIngestFixture(t, context.Background())
	h.tracker.CreateJob("job-1", dir)

	h.runJob("job-1", dir, false)

	job, ok := h.tracker.GetJob("job-1")
	require.True(t, ok)
	assert.Equal(t, "complete", job.Status)
	assert.Empty(t, job.Error)
	assert.Equal(t, 1, job.Progress)
	require.Len(t, job.Results, 1)
	assert.Equal(t, 1, store.saved)
}

func TestIngestHandler_RunJob_AbortsOnServerShutdown(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	cancel()

	h, store, dir := newIngestFixture(t, base)
	h.tracker.CreateJob("job-1", dir)

	h.runJob("job-1", dir, false)

	job, ok := h.tracker.GetJob("job-1")
	require.True(t, ok)
	assert.Equal(t, "error", job.Status)
	assert.Contains(t, job.Error, context.Canceled.Error())
	assert.Zero(t, store.saved)
}
