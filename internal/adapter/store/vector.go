package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
)

// SearchStore runs pgvector similarity and full-text relevance queries over
// stored chunks. All queries are read-only.
type SearchStore struct {
	store *PostgresStore
}

// NewSearchStore creates a search store backed by the given Postgres store.
func NewSearchStore(store *PostgresStore) *SearchStore {
	return &SearchStore{store: store}
}

// VectorSearch ranks chunks by cosine similarity to the query embedding.
// Similarity is 1 minus the cosine distance; ties are broken by document
// creation time then chunk index so identical scores rank deterministically.
func (s *SearchStore) VectorSearch(ctx context.Context, embedding []float32, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	vectorStr := vectorToString(embedding)

	rows, err := s.store.db.QueryContext(ctx,
		`SELECT c.id::text, c.document_id::text, c.content,
		        1 - (c.embedding <=> $1::vector) AS similarity,
		        c.metadata, d.title, d.source
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE c.embedding IS NOT NULL
		 ORDER BY c.embedding <=> $1::vector, d.created_at, c.chunk_index
		 LIMIT $2`,
		vectorStr, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// LexicalSearch ranks chunks by full-text relevance to the query text using
// ts_rank_cd with rank/(rank+1) normalization so scores land in [0, 1).
func (s *SearchStore) LexicalSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.store.db.QueryContext(ctx,
		`SELECT c.id::text, c.document_id::text, c.content,
		        ts_rank_cd(to_tsvector('english', c.content), plainto_tsquery('english', $1), 32) AS rank,
		        c.metadata, d.title, d.source
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE to_tsvector('english', c.content) @@ plainto_tsquery('english', $1)
		 ORDER BY rank DESC, d.created_at, c.chunk_index
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: lexical search: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// scanResults reads ranked rows into SearchResults, clamping scores to [0, 1].
func scanResults(rows rowScanner) ([]domain.SearchResult, error) {
	var results []domain.SearchResult
	for rows.Next() {
		var (
			r    domain.SearchResult
			meta []byte
		)
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &r.Score, &meta, &r.DocumentTitle, &r.DocumentSource); err != nil {
			return nil, fmt.Errorf("%w: scan result: %v", domain.ErrStorage, err)
		}
		if err := unmarshalMeta(meta, &r.Metadata); err != nil {
			return nil, fmt.Errorf("%w: decode result metadata: %v", domain.ErrStorage, err)
		}
		r.Score = domain.ClampScore(r.Score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate results: %v", domain.ErrStorage, err)
	}
	return results, nil
}

func unmarshalMeta(raw []byte, dst *map[string]any) error {
	if len(raw) == 0 {
		*dst = map[string]any{}
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// rowScanner is satisfied by *sql.Rows; it keeps scanResults testable.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// vectorToString converts a float32 slice to pgvector text format: [0.1,0.2].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector converts pgvector text format back into a float32 slice.
func parseVector(s string) ([]float32, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
		return nil, fmt.Errorf("malformed vector %q", s)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]")
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("malformed vector component %q: %w", p, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
