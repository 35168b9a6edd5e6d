package domain

import "time"

// Document is a fully ingested source document. The raw content is kept so
// chunk offsets can always be resolved back to the original text.
type Document struct {
	ID        string            `json:"id"         db:"id"`
	Title     string            `json:"title"      db:"title"`
	Source    string            `json:"source"     db:"source"`
	Content   string            `json:"content"    db:"content"`
	Metadata  map[string]any    `json:"metadata"   db:"metadata"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// DocumentMetadata is the listing view of a document, without its content.
type DocumentMetadata struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Source     string         `json:"source"`
	Metadata   map[string]any `json:"metadata"`
	ChunkCount int            `json:"chunk_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Chunk is a bounded contiguous slice of a document's content, the unit of
// retrieval. Chunks are immutable once written; re-ingestion creates new rows.
type Chunk struct {
	ID         string         `json:"id"          db:"id"`
	DocumentID string         `json:"document_id" db:"document_id"`
	Index      int            `json:"chunk_index" db:"chunk_index"`
	Content    string         `json:"content"     db:"content"`
	StartChar  int            `json:"start_char"  db:"start_char"`
	EndChar    int            `json:"end_char"    db:"end_char"`
	TokenCount int            `json:"token_count" db:"token_count"`
	Metadata   map[string]any `json:"metadata"    db:"metadata"`
	Embedding  []float32      `json:"-"           db:"embedding"`
}

// EstimateTokens approximates the token count of a text as len/4 with a floor
// of 1. This is a cost-estimate heuristic, not real tokenization; nothing
// correctness-sensitive may depend on it.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// WithEmbedding returns a copy of the chunk carrying the given vector plus
// embedding provenance metadata. The receiver is not modified.
func (c Chunk) WithEmbedding(vector []float32, model string, at time.Time) Chunk {
	meta := make(map[string]any, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta["embedding_model"] = model
	meta["embedding_generated_at"] = at.UTC().Format(time.RFC3339)

	c.Metadata = meta
	c.Embedding = vector
	return c
}

// IngestionResult summarizes the outcome of ingesting a single document.
type IngestionResult struct {
	DocumentID       string        `json:"document_id"`
	Title            string        `json:"title"`
	Source           string        `json:"source"`
	ChunksCreated    int           `json:"chunks_created"`
	ProcessingTime   time.Duration `json:"-"`
	ProcessingTimeMS float64       `json:"processing_time_ms"`
	Err              error         `json:"-"`
	Error            string        `json:"error,omitempty"`
}
