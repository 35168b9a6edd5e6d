// Package store persists documents and chunks in Postgres with pgvector.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
)

//go:embed schema.sql
var schemaTemplate string

// PostgresStore handles all relational database operations. The connection
// pool is bounded so retrieval queries can only block each other through pool
// exhaustion, which surfaces as a context timeout rather than a hang.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool and returns a store instance.
func NewPostgresStore(databaseURL string, maxConns int) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 25
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns / 5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the tables and indexes if they do not exist. The
// embedding column width is fixed at the configured model dimension.
func (s *PostgresStore) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("ensure schema: invalid embedding dimension %d", dimension)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(schemaTemplate, dimension)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// --- Documents ---

// SaveDocument inserts a document and all of its chunks in one transaction
// and returns the new document id. A failure on any row rolls back the whole
// document.
func (s *PostgresStore) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: begin tx: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	docMeta, err := json.Marshal(orEmpty(doc.Metadata))
	if err != nil {
		return "", fmt.Errorf("%w: marshal document metadata: %v", domain.ErrStorage, err)
	}

	var documentID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO documents (title, source, content, metadata)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id::text`,
		doc.Title, doc.Source, doc.Content, docMeta,
	).Scan(&documentID)
	if err != nil {
		return "", fmt.Errorf("%w: insert document: %v", domain.ErrStorage, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, content, start_char, end_char, token_count, metadata, embedding)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8::vector)`)
	if err != nil {
		return "", fmt.Errorf("%w: prepare chunk insert: %v", domain.ErrStorage, err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		chunkMeta, err := json.Marshal(orEmpty(chunk.Metadata))
		if err != nil {
			return "", fmt.Errorf("%w: marshal chunk %d metadata: %v", domain.ErrStorage, chunk.Index, err)
		}
		var embedding any
		if chunk.Embedding != nil {
			embedding = vectorToString(chunk.Embedding)
		}
		if _, err := stmt.ExecContext(ctx,
			documentID, chunk.Index, chunk.Content, chunk.StartChar, chunk.EndChar,
			chunk.TokenCount, chunkMeta, embedding,
		); err != nil {
			return "", fmt.Errorf("%w: insert chunk %d: %v", domain.ErrStorage, chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: commit: %v", domain.ErrStorage, err)
	}
	return documentID, nil
}

// GetDocument returns a document by id, or domain.ErrNotFound.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var (
		doc  domain.Document
		meta []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id::text, title, source, content, metadata, created_at, updated_at
		 FROM documents WHERE id = $1::uuid`,
		id,
	).Scan(&doc.ID, &doc.Title, &doc.Source, &doc.Content, &meta, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", domain.ErrStorage, err)
	}
	if err := json.Unmarshal(meta, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("%w: decode document metadata: %v", domain.ErrStorage, err)
	}
	return &doc, nil
}

// GetDocumentChunks returns a document's chunks ordered by chunk index, with
// embeddings populated.
func (s *PostgresStore) GetDocumentChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id::text, document_id::text, chunk_index, content, start_char, end_char,
		        token_count, metadata, COALESCE(embedding::text, '')
		 FROM chunks WHERE document_id = $1::uuid
		 ORDER BY chunk_index`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get chunks: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var (
			chunk     domain.Chunk
			meta      []byte
			embedding string
		)
		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content,
			&chunk.StartChar, &chunk.EndChar, &chunk.TokenCount, &meta, &embedding,
		); err != nil {
			return nil, fmt.Errorf("%w: scan chunk: %v", domain.ErrStorage, err)
		}
		if err := json.Unmarshal(meta, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("%w: decode chunk metadata: %v", domain.ErrStorage, err)
		}
		if embedding != "" {
			if chunk.Embedding, err = parseVector(embedding); err != nil {
				return nil, fmt.Errorf("%w: decode chunk embedding: %v", domain.ErrStorage, err)
			}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate chunks: %v", domain.ErrStorage, err)
	}
	return chunks, nil
}

// ListDocuments returns a page of document metadata with chunk counts,
// ordered by creation time for stable pagination.
func (s *PostgresStore) ListDocuments(ctx context.Context, limit, offset int) ([]domain.DocumentMetadata, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id::text, d.title, d.source, d.metadata, d.created_at, d.updated_at,
		        COUNT(c.id) AS chunk_count
		 FROM documents d
		 LEFT JOIN chunks c ON c.document_id = d.id
		 GROUP BY d.id
		 ORDER BY d.created_at DESC, d.id
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var docs []domain.DocumentMetadata
	for rows.Next() {
		var (
			d    domain.DocumentMetadata
			meta []byte
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &meta, &d.CreatedAt, &d.UpdatedAt, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", domain.ErrStorage, err)
		}
		if err := json.Unmarshal(meta, &d.Metadata); err != nil {
			return nil, fmt.Errorf("%w: decode document metadata: %v", domain.ErrStorage, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate documents: %v", domain.ErrStorage, err)
	}
	return docs, nil
}

// DeleteAll clears every chunk and document, chunks first so referential
// integrity holds at all times. Used for clean re-ingestion.
func (s *PostgresStore) DeleteAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorage, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("%w: delete chunks: %v", domain.ErrStorage, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("%w: delete documents: %v", domain.ErrStorage, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorage, err)
	}
	return nil
}

func orEmpty(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
