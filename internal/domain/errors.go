package domain

import "errors"

// Sentinel errors shared across the core. Callers classify failures with
// errors.Is; each per-document failure aborts only that document's ingestion.
var (
	// ErrInvalidConfig marks chunking parameters rejected at construction.
	ErrInvalidConfig = errors.New("invalid chunking config")

	// ErrExtraction marks an unreadable or missing source document.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding marks an embedding backend failure. No partial batch is
	// ever kept; the whole document must be re-ingested.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStorage marks a storage transaction failure after rollback.
	ErrStorage = errors.New("storage failed")

	// ErrNotFound marks an unknown document id.
	ErrNotFound = errors.New("document not found")
)
