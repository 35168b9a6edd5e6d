package domain

// SearchResult is one ranked chunk returned by the retrieval engine. Document
// title and source are denormalized for display.
type SearchResult struct {
	ChunkID        string         `json:"chunk_id"`
	DocumentID     string         `json:"document_id"`
	Content        string         `json:"content"`
	Score          float64        `json:"score"`
	Metadata       map[string]any `json:"metadata"`
	DocumentTitle  string         `json:"document_title"`
	DocumentSource string         `json:"document_source"`
}

// ClampScore forces a relevance score into [0, 1]. Raw backend scores can
// fall outside the range (cosine similarity reaches -1, rank fusion can
// overshoot); out-of-range values are clamped, never rejected.
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
