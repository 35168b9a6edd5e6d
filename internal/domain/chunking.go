package domain

import "fmt"

// Default chunking parameters, matching the ingestion defaults.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultMinChunkSize = 100
	DefaultMaxChunkSize = 2000
)

// ChunkingConfig controls how documents are split into chunks.
type ChunkingConfig struct {
	ChunkSize            int  `json:"chunk_size"`
	ChunkOverlap         int  `json:"chunk_overlap"`
	MinChunkSize         int  `json:"min_chunk_size"`
	MaxChunkSize         int  `json:"max_chunk_size"`
	UseSemanticSplitting bool `json:"use_semantic_splitting"`
}

// DefaultChunkingConfig returns the standard configuration with structural
// splitting enabled.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MinChunkSize: DefaultMinChunkSize,
		MaxChunkSize: DefaultMaxChunkSize,
	}
}

// Validate rejects configurations that cannot produce well-formed chunks.
func (c ChunkingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap (%d) must be less than chunk size (%d)", ErrInvalidConfig, c.ChunkOverlap, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrInvalidConfig, c.ChunkOverlap)
	}
	if c.MinChunkSize <= 0 {
		return fmt.Errorf("%w: minimum chunk size must be positive, got %d", ErrInvalidConfig, c.MinChunkSize)
	}
	if c.MaxChunkSize < c.ChunkSize {
		return fmt.Errorf("%w: maximum chunk size (%d) must be at least chunk size (%d)", ErrInvalidConfig, c.MaxChunkSize, c.ChunkSize)
	}
	return nil
}
