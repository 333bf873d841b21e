package extract

import (
	"context"
	"os"
	"unicode/utf8"
)

// TextExtractor handles plain text and markdown files.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

// Extract reads the file as UTF-8, falling back to a Latin-1 interpretation
// for legacy files that are not valid UTF-8.
func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return decodeLatin1(data), nil
}

// decodeLatin1 maps each byte to the corresponding Unicode code point.
func decodeLatin1(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
