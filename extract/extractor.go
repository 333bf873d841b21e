package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/poiesic/recall/core"
)

// Extractor converts a document file of one specific format into plain text.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	// Extract reads the file at path and returns its textual content.
	Extract(ctx context.Context, path string) (string, error)
}

// Registry dispatches extraction to a format-specific Extractor selected by
// file extension. Unknown extensions yield core.ErrUnsupportedFormat, which
// is a business failure rather than a system fault.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the default extractors: plain text
// (.txt), markdown (.md, .markdown) and HTML (.html, .htm).
func NewRegistry() *Registry {
	text := &TextExtractor{}
	html := NewHTMLExtractor()
	return &Registry{
		extractors: map[string]Extractor{
			".txt":      text,
			".md":       text,
			".markdown": text,
			".html":     html,
			".htm":      html,
		},
	}
}

// Register installs an extractor for an extension (with leading dot),
// replacing any existing one.
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[strings.ToLower(ext)] = e
}

// Supported reports whether the filename's extension has an extractor.
func (r *Registry) Supported(filename string) bool {
	_, ok := r.extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ExtractFile extracts text from the file at path, choosing the extractor by
// the file's extension.
func (r *Registry) ExtractFile(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := r.extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, ext)
	}
	return extractor.Extract(ctx, path)
}
