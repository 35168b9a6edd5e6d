// Package extract implements the text extraction collaborator for
// Markdown-like plain-text sources. Binary formats are out of scope; anything
// that needs real parsing sits behind the same port elsewhere.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
	"github.com/arturoeanton/go-rag-pgvector/internal/port"
)

var supportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// MarkdownExtractor reads Markdown and plain-text files. The title is the
// first heading, falling back to the file name; metadata carries line and
// heading counts.
type MarkdownExtractor struct {
	baseDir string
}

// NewMarkdownExtractor creates an extractor; source identifiers are paths
// relative to baseDir.
func NewMarkdownExtractor(baseDir string) *MarkdownExtractor {
	return &MarkdownExtractor{baseDir: baseDir}
}

// Supports reports whether the path has a readable extension.
func (e *MarkdownExtractor) Supports(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Extract implements port.Extractor.
func (e *MarkdownExtractor) Extract(_ context.Context, path string) (*port.Extraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrExtraction, path, err)
	}

	content := string(raw)
	source := path
	if e.baseDir != "" {
		if rel, err := filepath.Rel(e.baseDir, path); err == nil {
			source = rel
		}
	}

	title := firstHeading(content)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	lines := strings.Count(content, "\n") + 1
	headings := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			headings++
		}
	}

	return &port.Extraction{
		Content: content,
		Title:   title,
		Source:  source,
		Metadata: map[string]any{
			"file_type":     strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
			"line_count":    lines,
			"heading_count": headings,
		},
	}, nil
}

// firstHeading returns the text of the first Markdown heading, if any.
func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
	}
	return ""
}
