// Package ai provides the embedding backend adapter.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
)

// DefaultMaxBatchSize caps how many texts go into a single /api/embed call.
const DefaultMaxBatchSize = 64

// OllamaConfig holds the configuration for an Ollama embedding endpoint.
type OllamaConfig struct {
	BaseURL      string  // e.g. http://localhost:11434 or https://api.ollama.com
	Model        string  // e.g. bge-m3, nomic-embed-text
	Token        string  // Bearer token for Ollama Cloud (empty = no auth)
	Dimension    int     // fixed vector width the model produces
	MaxBatchSize int     // texts per call; 0 = DefaultMaxBatchSize
	RequestsPerS float64 // backend quota; 0 = unlimited
}

// OllamaEmbedder implements port.Embedder using the Ollama REST API. A shared
// rate limiter keeps concurrent document pipelines within the backend quota.
type OllamaEmbedder struct {
	cfg        OllamaConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOllamaEmbedder creates a new Ollama-backed embedder.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerS), 1)
	}
	return &OllamaEmbedder{
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    limiter,
	}
}

// ModelName returns the embedding model identifier.
func (o *OllamaEmbedder) ModelName() string {
	return o.cfg.Model
}

// Dimension returns the configured vector width.
func (o *OllamaEmbedder) Dimension() int {
	return o.cfg.Dimension
}

// Embed generates a vector embedding for a single text.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for all texts, splitting the input into the
// minimum number of calls the batch limit allows and preserving order. Any
// call failure fails the whole batch; no partial result is returned.
func (o *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += o.cfg.MaxBatchSize {
		end := start + o.cfg.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := o.embedCall(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrEmbedding, len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedCall performs one /api/embed request.
func (o *OllamaEmbedder) embedCall(ctx context.Context, texts []string) ([][]float32, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"model": o.cfg.Model,
		"input": texts,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/api/embed", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	var decoded struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Embeddings, nil
}
