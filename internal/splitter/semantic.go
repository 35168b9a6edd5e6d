package splitter

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/port"
)

// DefaultSimilarityThreshold is the cosine similarity below which two
// adjacent sentences are considered a topic boundary.
const DefaultSimilarityThreshold = 0.75

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*\n*`)

// Semantic groups contiguous sentences whose embeddings stay similar and cuts
// a chunk wherever the similarity to the next sentence drops below the
// threshold. If the embedding backend is unavailable, or the text is too
// short to carry a signal, it falls back to the structural strategy.
type Semantic struct {
	cfg       domain.ChunkingConfig
	embedder  port.Embedder
	threshold float64
	fallback  *Structural
}

// NewSemantic creates the semantic splitter with its structural fallback.
func NewSemantic(cfg domain.ChunkingConfig, embedder port.Embedder) (*Semantic, error) {
	fallback, err := NewStructural(cfg)
	if err != nil {
		return nil, err
	}
	return &Semantic{
		cfg:       cfg,
		embedder:  embedder,
		threshold: DefaultSimilarityThreshold,
		fallback:  fallback,
	}, nil
}

// WithThreshold overrides the similarity threshold.
func (s *Semantic) WithThreshold(t float64) *Semantic {
	s.threshold = t
	return s
}

// Split implements Splitter.
func (s *Semantic) Split(ctx context.Context, content string, info SourceInfo) ([]domain.Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	sentences := findSentences(content)
	if len(sentences) < 2 {
		return s.fallback.Split(ctx, content, info)
	}

	texts := make([]string, len(sentences))
	for i, sp := range sentences {
		texts[i] = content[sp.start:sp.end]
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(sentences) {
		slog.Warn("semantic split falling back to structural", "source", info.Source, "error", err)
		return s.fallback.Split(ctx, content, info)
	}

	spans := s.group(sentences, vectors)
	spans = s.resplitOversize(content, spans)
	spans = dropBlank(content, spans)
	spans = mergeSmall(spans, s.cfg.MinChunkSize, s.cfg.MaxChunkSize)

	return assemble(content, spans, 0, info, "semantic"), nil
}

// group walks sentence pairs and closes the current segment at points of
// semantic discontinuity or when the segment would outgrow ChunkSize.
func (s *Semantic) group(sentences []span, vectors [][]float32) []span {
	var out []span
	current := sentences[0]
	for i := 1; i < len(sentences); i++ {
		next := sentences[i]
		sim := cosineSimilarity(vectors[i-1], vectors[i])
		if sim < s.threshold || next.end-current.start > s.cfg.ChunkSize {
			out = append(out, current)
			current = next
			continue
		}
		current.end = next.end
	}
	return append(out, current)
}

// resplitOversize forces any segment beyond MaxChunkSize back through the
// structural separator hierarchy.
func (s *Semantic) resplitOversize(content string, spans []span) []span {
	var out []span
	for _, sp := range spans {
		if sp.end-sp.start <= s.cfg.MaxChunkSize {
			out = append(out, sp)
			continue
		}
		parts := splitRecursive(content[sp.start:sp.end], sp.start, s.cfg.ChunkSize, separators)
		out = append(out, mergeSpans(parts, s.cfg.ChunkSize)...)
	}
	return out
}

// findSentences locates sentence spans in the content; a terminator-less tail
// is kept as its own sentence.
func findSentences(content string) []span {
	matches := sentencePattern.FindAllStringIndex(content, -1)
	spans := make([]span, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(content[m[0]:m[1]]) == "" {
			continue
		}
		spans = append(spans, span{m[0], m[1]})
	}
	return spans
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
