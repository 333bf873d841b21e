package extract

import (
	"context"
	"fmt"
	"os"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/poiesic/recall/core"
)

// HTMLExtractor converts HTML documents to markdown text so the markup does
// not pollute chunking and embedding.
type HTMLExtractor struct {
	converter *md.Converter
}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{
		converter: md.NewConverter("", true, nil),
	}
}

// Extract reads the HTML file and returns its markdown rendition.
func (e *HTMLExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	markdown, err := e.converter.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("%w: html conversion: %v", core.ErrUnsupportedFormat, err)
	}
	return markdown, nil
}
