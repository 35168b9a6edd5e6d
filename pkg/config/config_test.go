package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "bge-m3", cfg.OllamaEmbedModel)
	assert.Equal(t, 1024, cfg.EmbeddingDimension)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.False(t, cfg.SemanticChunking)

	require.NoError(t, cfg.ChunkingConfig().Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("USE_SEMANTIC_CHUNKING", "true")
	t.Setenv("EMBED_REQUESTS_PER_SECOND", "2.5")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.True(t, cfg.SemanticChunking)
	assert.Equal(t, 2.5, cfg.EmbedRequestsPerS)

	chunking := cfg.ChunkingConfig()
	assert.Equal(t, 500, chunking.ChunkSize)
	assert.True(t, chunking.UseSemanticSplitting)
}

func TestLoad_EmbedURLFallsBackToBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg := Load()
	assert.Equal(t, "http://ollama:11434", cfg.OllamaEmbedURL)

	t.Setenv("OLLAMA_EMBED_URL", "https://api.ollama.com")
	cfg = Load()
	assert.Equal(t, "https://api.ollama.com", cfg.OllamaEmbedURL)
}

func TestLoad_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("MAX_DB_CONNS", "")

	cfg := Load()
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 25, cfg.MaxDBConns)
}
