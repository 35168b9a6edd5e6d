package port

import "context"

// Extraction is the output of the text extraction collaborator: plain
// Markdown-like text plus the structural metadata the source exposes.
type Extraction struct {
	Content  string
	Title    string
	Source   string
	Metadata map[string]any
}

// Extractor turns a source document into plain text. The core treats this as
// an opaque producer; it never parses binary formats itself.
type Extractor interface {
	// Extract reads the document at path and returns its text and metadata.
	Extract(ctx context.Context, path string) (*Extraction, error)

	// Supports reports whether this extractor can handle the given path.
	Supports(path string) bool
}
