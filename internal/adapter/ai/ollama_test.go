package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
)

// embedServer is an /api/embed stub that numbers each input across calls so
// tests can verify ordering and batching.
type embedServer struct {
	mu       sync.Mutex
	calls    int
	batches  [][]string
	fail     bool
	shortBy  int
	lastAuth string
}

func (s *embedServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastAuth = r.Header.Get("Authorization")

	if s.fail {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	var req struct {
		Model string   `json:"model"`
		Input []string `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.batches = append(s.batches, req.Input)

	count := len(req.Input) - s.shortBy
	embeddings := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		embeddings = append(embeddings, []float32{float32(len(s.batches)), float32(i)})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embeddings})
}

func newTestEmbedder(srv *httptest.Server, batchSize int, token string) *OllamaEmbedder {
	return NewOllamaEmbedder(OllamaConfig{
		BaseURL:      srv.URL,
		Model:        "bge-m3",
		Token:        token,
		Dimension:    2,
		MaxBatchSize: batchSize,
	})
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	stub := &embedServer{}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer srv.Close()

	embedder := newTestEmbedder(srv, 0, "")
	vector, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 0}, vector)
	assert.Equal(t, 1, stub.calls)
	assert.Empty(t, stub.lastAuth)
}

func TestOllamaEmbedder_EmbedBatch_SplitsAtLimit(t *testing.T) {
	stub := &embedServer{}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer srv.Close()

	embedder := newTestEmbedder(srv, 2, "")
	vectors, err := embedder.EmbedBatch(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)

	require.Len(t, vectors, 5)
	assert.Equal(t, 3, stub.calls)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, stub.batches)

	// Order within and across sub-batches is preserved.
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{1, 1}, vectors[1])
	assert.Equal(t, []float32{2, 0}, vectors[2])
	assert.Equal(t, []float32{3, 0}, vectors[4])
}

func TestOllamaEmbedder_EmbedBatch_Empty(t *testing.T) {
	embedder := newTestEmbedder(httptest.NewServer(http.NotFoundHandler()), 0, "")

	vectors, err := embedder.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestOllamaEmbedder_EmbedBatch_BackendError(t *testing.T) {
	stub := &embedServer{fail: true}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer srv.Close()

	embedder := newTestEmbedder(srv, 0, "")
	_, err := embedder.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbedder_EmbedBatch_CountMismatch(t *testing.T) {
	stub := &embedServer{shortBy: 1}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer srv.Close()

	embedder := newTestEmbedder(srv, 0, "")
	_, err := embedder.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestOllamaEmbedder_SendsBearerToken(t *testing.T) {
	stub := &embedServer{}
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	defer srv.Close()

	embedder := newTestEmbedder(srv, 0, "secret-token")
	_, err := embedder.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", stub.lastAuth)
}

func TestOllamaEmbedder_Accessors(t *testing.T) {
	embedder := NewOllamaEmbedder(OllamaConfig{Model: "bge-m3", Dimension: 1024})
	assert.Equal(t, "bge-m3", embedder.ModelName())
	assert.Equal(t, 1024, embedder.Dimension())
}
