// Package splitter turns raw document text into an ordered sequence of
// bounded, position-annotated chunks. Two strategies exist: a deterministic
// structural splitter that needs no external service, and a semantic splitter
// that segments at embedding discontinuities and falls back to the structural
// one when no semantic signal is available.
package splitter

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/port"
)

// SourceInfo carries the document-level context that seeds chunk metadata.
type SourceInfo struct {
	Title    string
	Source   string
	Metadata map[string]any
}

// Splitter produces unembedded chunks from document content. Empty or
// whitespace-only input yields an empty sequence, not an error.
type Splitter interface {
	Split(ctx context.Context, content string, info SourceInfo) ([]domain.Chunk, error)
}

// New selects the splitting strategy for the given config. Semantic splitting
// requires an embedder; without one the structural strategy is used.
func New(cfg domain.ChunkingConfig, embedder port.Embedder) (Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UseSemanticSplitting && embedder != nil {
		return NewSemantic(cfg, embedder)
	}
	return NewStructural(cfg)
}

// separators is the split priority: paragraph breaks, line breaks, sentence
// breaks, words, and finally raw characters.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Structural splits on the separator hierarchy recursively until every piece
// fits the chunk budget, re-merges small adjacent pieces, and carries
// ChunkOverlap characters of trailing context from each chunk into the next.
// It is deterministic for a given input and config and performs no I/O.
type Structural struct {
	cfg domain.ChunkingConfig
}

// NewStructural creates the structural splitter, validating the config.
func NewStructural(cfg domain.ChunkingConfig) (*Structural, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Structural{cfg: cfg}, nil
}

// Split implements Splitter.
func (s *Structural) Split(_ context.Context, content string, info SourceInfo) ([]domain.Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	// The overlap is prepended afterwards, so the base pieces are budgeted at
	// ChunkSize-ChunkOverlap to keep final chunks within ChunkSize.
	budget := s.cfg.ChunkSize - s.cfg.ChunkOverlap
	spans := splitRecursive(content, 0, budget, separators)
	spans = mergeSpans(spans, budget)
	spans = dropBlank(content, spans)
	spans = mergeSmall(spans, s.cfg.MinChunkSize, s.cfg.MaxChunkSize-s.cfg.ChunkOverlap)

	return assemble(content, spans, s.cfg.ChunkOverlap, info, "structural"), nil
}

// span is a half-open byte range into the source content.
type span struct {
	start, end int
}

// splitRecursive splits text (located at absolute offset base) into spans of
// at most limit bytes, working down the separator hierarchy. Separators stay
// attached to the preceding piece so the spans tile the input exactly.
func splitRecursive(text string, base, limit int, seps []string) []span {
	if len(text) <= limit {
		return []span{{base, base + len(text)}}
	}
	if len(seps) == 0 || seps[0] == "" {
		return splitHard(text, base, limit)
	}

	sep := seps[0]
	if !strings.Contains(text, sep) {
		return splitRecursive(text, base, limit, seps[1:])
	}

	var out []span
	off := 0
	for _, part := range strings.SplitAfter(text, sep) {
		if part == "" {
			continue
		}
		if len(part) <= limit {
			out = append(out, span{base + off, base + off + len(part)})
		} else {
			out = append(out, splitRecursive(part, base+off, limit, seps[1:])...)
		}
		off += len(part)
	}
	return out
}

// splitHard cuts text at raw byte positions, backing each cut off to a rune
// boundary so no chunk ever contains a torn code point.
func splitHard(text string, base, limit int) []span {
	var out []span
	for i := 0; i < len(text); {
		end := i + limit
		if end >= len(text) {
			out = append(out, span{base + i, base + len(text)})
			break
		}
		for end > i && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == i {
			// A single rune wider than the limit; emit it whole.
			_, size := utf8.DecodeRuneInString(text[i:])
			end = i + size
		}
		out = append(out, span{base + i, base + end})
		i = end
	}
	return out
}

// mergeSpans greedily re-merges adjacent spans while the combined length
// stays within limit.
func mergeSpans(spans []span, limit int) []span {
	var out []span
	for _, s := range spans {
		if n := len(out); n > 0 && s.end-out[n-1].start <= limit {
			out[n-1].end = s.end
			continue
		}
		out = append(out, s)
	}
	return out
}

// dropBlank removes spans whose content is entirely whitespace.
func dropBlank(content string, spans []span) []span {
	out := spans[:0]
	for _, s := range spans {
		if strings.TrimSpace(content[s.start:s.end]) != "" {
			out = append(out, s)
		}
	}
	return out
}

// mergeSmall folds spans shorter than minSize into a neighbor, capped at
// maxSize, unless the span is the only one.
func mergeSmall(spans []span, minSize, maxSize int) []span {
	if len(spans) <= 1 {
		return spans
	}
	var out []span
	for _, s := range spans {
		if n := len(out); n > 0 && s.end-s.start < minSize && s.end-out[n-1].start <= maxSize {
			out[n-1].end = s.end
			continue
		}
		out = append(out, s)
	}
	// A small leading span merges into its successor instead.
	if len(out) > 1 && out[0].end-out[0].start < minSize && out[1].end-out[0].start <= maxSize {
		out[1].start = out[0].start
		out = out[1:]
	}
	return out
}

// assemble materializes chunks from spans: the overlap window is pulled in
// from the previous chunk (never past its start), offsets are adjusted to
// rune boundaries, and metadata is seeded from the source info. Every chunk's
// content is exactly content[StartChar:EndChar].
func assemble(content string, spans []span, overlap int, info SourceInfo, method string) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, sp := range spans {
		start := sp.start
		if overlap > 0 && i > 0 {
			start -= overlap
			if prev := spans[i-1].start; start < prev {
				start = prev
			}
			for start < sp.start && !utf8.RuneStart(content[start]) {
				start++
			}
		}

		text := content[start:sp.end]
		chunks = append(chunks, domain.Chunk{
			Index:      i,
			Content:    text,
			StartChar:  start,
			EndChar:    sp.end,
			TokenCount: domain.EstimateTokens(text),
			Metadata:   chunkMetadata(info, method, i, len(spans)),
		})
	}
	return chunks
}

func chunkMetadata(info SourceInfo, method string, index, total int) map[string]any {
	meta := make(map[string]any, len(info.Metadata)+5)
	for k, v := range info.Metadata {
		meta[k] = v
	}
	meta["source"] = info.Source
	meta["title"] = info.Title
	meta["chunk_method"] = method
	meta["chunk_index"] = index
	meta["total_chunks"] = total
	return meta
}
