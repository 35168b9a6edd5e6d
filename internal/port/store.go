package port

import (
	"context"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
)

// DocumentStore is the durable, transactional persistence boundary for
// documents and their chunks.
type DocumentStore interface {
	// SaveDocument atomically inserts a document and all of its chunks and
	// returns the new document id. Either every row is visible afterwards or
	// none is.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error)

	// GetDocument returns a document by id, or domain.ErrNotFound.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentChunks returns a document's chunks ordered by chunk index.
	GetDocumentChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListDocuments returns a page of document metadata ordered by creation
	// time so pagination is stable absent concurrent writes.
	ListDocuments(ctx context.Context, limit, offset int) ([]domain.DocumentMetadata, error)

	// DeleteAll removes every chunk and document, chunks first.
	DeleteAll(ctx context.Context) error
}

// SearchStore executes read-only retrieval queries over stored chunks.
type SearchStore interface {
	// VectorSearch ranks chunks by cosine similarity to the query embedding.
	VectorSearch(ctx context.Context, embedding []float32, limit int) ([]domain.SearchResult, error)

	// LexicalSearch ranks chunks by full-text relevance to the query text.
	LexicalSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
}
