package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/port"
)

// SearchService is the retrieval engine: vector-similarity search, lexical
// search, and the hybrid fusion of both. All operations are read-only and
// raise typed errors; the degrade-to-empty policy belongs to callers, not
// here, so backend outages stay visible.
type SearchService struct {
	embedder port.Embedder
	store    port.SearchStore
}

// NewSearchService creates the retrieval engine.
func NewSearchService(embedder port.Embedder, store port.SearchStore) *SearchService {
	return &SearchService{embedder: embedder, store: store}
}

// VectorSearch embeds the query and ranks chunks by cosine similarity.
func (s *SearchService) VectorSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.VectorSearch(ctx, embedding, limit)
}

// LexicalSearch ranks chunks by full-text relevance to the query.
func (s *SearchService) LexicalSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	return s.store.LexicalSearch(ctx, query, limit)
}

// HybridSearch fuses vector and lexical rankings. textWeight 0 reduces to
// pure vector order, 1 to pure lexical order; out-of-range weights are
// clamped. Candidates are the union of both result sets so a chunk without a
// lexical match still competes on vector similarity alone.
func (s *SearchService) HybridSearch(ctx context.Context, query string, limit int, textWeight float64) ([]domain.SearchResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vectorResults, err := s.store.VectorSearch(ctx, embedding, limit)
	if err != nil {
		return nil, err
	}
	lexicalResults, err := s.store.LexicalSearch(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	slog.Debug("hybrid search candidates",
		"vector", len(vectorResults), "lexical", len(lexicalResults), "text_weight", textWeight)

	return FuseHybrid(vectorResults, lexicalResults, limit, textWeight), nil
}

// FuseHybrid combines the two candidate sets with
// combined = (1-w)*vector + w*lexical, clamps scores to [0, 1], sorts
// descending, and truncates to limit. The sort is stable over the vector
// ordering followed by lexical-only candidates, keeping equal-score results
// deterministic.
func FuseHybrid(vectorResults, lexicalResults []domain.SearchResult, limit int, textWeight float64) []domain.SearchResult {
	if textWeight < 0 {
		textWeight = 0
	}
	if textWeight > 1 {
		textWeight = 1
	}

	type candidate struct {
		result   domain.SearchResult
		vecScore float64
		lexScore float64
		vecRank  int
		lexRank  int
	}

	// A candidate missing from one list ranks behind everything in it.
	unranked := len(vectorResults) + len(lexicalResults)

	order := make([]string, 0, unranked)
	byID := make(map[string]*candidate, unranked)

	for i, r := range vectorResults {
		order = append(order, r.ChunkID)
		byID[r.ChunkID] = &candidate{result: r, vecScore: r.Score, vecRank: i, lexRank: unranked}
	}
	for i, r := range lexicalResults {
		if c, ok := byID[r.ChunkID]; ok {
			c.lexScore = r.Score
			c.lexRank = i
			continue
		}
		order = append(order, r.ChunkID)
		byID[r.ChunkID] = &candidate{result: r, lexScore: r.Score, vecRank: unranked, lexRank: i}
	}

	fused := make([]*candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.result.Score = domain.ClampScore((1-textWeight)*c.vecScore + textWeight*c.lexScore)
		fused = append(fused, c)
	}

	// Equal combined scores fall back to the weighted rank in the underlying
	// lists, so textWeight 0 and 1 reproduce the source orderings exactly.
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].result.Score != fused[j].result.Score {
			return fused[i].result.Score > fused[j].result.Score
		}
		ri := (1-textWeight)*float64(fused[i].vecRank) + textWeight*float64(fused[i].lexRank)
		rj := (1-textWeight)*float64(fused[j].vecRank) + textWeight*float64(fused[j].lexRank)
		return ri < rj
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}

	results := make([]domain.SearchResult, len(fused))
	for i, c := range fused {
		results[i] = c.result
	}
	return results
}
